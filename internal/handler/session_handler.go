package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/internal/service"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
	"github.com/campus-adp/timetable-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error)
	Get(ctx context.Context, id string) (*service.SessionResult, error)
	ListForCohort(ctx context.Context, selector models.CohortSelector, dateFrom, dateTo string) ([]models.Session, error)
	Create(ctx context.Context, actor *models.JWTClaims, req service.CreateSessionRequest) (*service.SessionResult, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req service.UpdateSessionRequest) (*service.SessionResult, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*service.SessionResult, error)
}

// SessionHandler manages session scheduling endpoints.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

func sessionFilterFromQuery(c *gin.Context) models.SessionFilter {
	var filter models.SessionFilter
	filter.InstructorID = c.Query("instructorId")
	filter.RoomID = c.Query("roomId")
	filter.SubjectID = c.Query("subjectId")
	filter.DateFrom = c.Query("dateFrom")
	filter.DateTo = c.Query("dateTo")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param instructorId query string false "Filter by instructor"
// @Param roomId query string false "Filter by room"
// @Param subjectId query string false "Filter by subject"
// @Param dateFrom query string false "Earliest date (YYYY-MM-DD)"
// @Param dateTo query string false "Latest date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, pagination, err := h.service.List(c.Request.Context(), sessionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get a session with its cohort assignments
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListForCohort godoc
// @Summary List sessions targeting a cohort
// @Tags Sessions
// @Produce json
// @Param programId query string true "Program ID"
// @Param levelId query string false "Level ID"
// @Param groupId query string false "Group ID"
// @Param dateFrom query string false "Earliest date"
// @Param dateTo query string false "Latest date"
// @Success 200 {object} response.Envelope
// @Router /sessions/cohort [get]
func (h *SessionHandler) ListForCohort(c *gin.Context) {
	selector := models.CohortSelector{ProgramID: c.Query("programId")}
	if v := c.Query("levelId"); v != "" {
		selector.LevelID = &v
	}
	if v := c.Query("groupId"); v != "" {
		selector.GroupID = &v
	}
	sessions, err := h.service.ListForCohort(c.Request.Context(), selector, c.Query("dateFrom"), c.Query("dateTo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Create godoc
// @Summary Schedule a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Reschedule a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body service.UpdateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel a session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Cancel(c *gin.Context) {
	result, err := h.service.Cancel(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
