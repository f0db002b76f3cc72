package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/internal/service"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
	"github.com/campus-adp/timetable-api/pkg/response"
)

type cohortService interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	CreateProgram(ctx context.Context, actor *models.JWTClaims, req service.CreateProgramRequest) (*models.Program, error)
	DeleteProgram(ctx context.Context, actor *models.JWTClaims, id string) error
	ListLevels(ctx context.Context) ([]models.Level, error)
	CreateLevel(ctx context.Context, actor *models.JWTClaims, req service.CreateLevelRequest) (*models.Level, error)
	DeleteLevel(ctx context.Context, actor *models.JWTClaims, id string) error
	ListGroups(ctx context.Context, programID, levelID string) ([]models.Group, error)
	CreateGroup(ctx context.Context, actor *models.JWTClaims, req service.CreateGroupRequest) (*models.Group, error)
	DeleteGroup(ctx context.Context, actor *models.JWTClaims, id string) error
}

// CohortHandler manages the program / level / group hierarchy endpoints.
type CohortHandler struct {
	service cohortService
}

// NewCohortHandler constructs handler.
func NewCohortHandler(svc cohortService) *CohortHandler {
	return &CohortHandler{service: svc}
}

// ListPrograms godoc
// @Summary List programs
// @Tags Cohorts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *CohortHandler) ListPrograms(c *gin.Context) {
	programs, err := h.service.ListPrograms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, nil)
}

// CreateProgram godoc
// @Summary Create a program
// @Tags Cohorts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateProgramRequest true "Program payload"
// @Success 201 {object} response.Envelope
// @Router /programs [post]
func (h *CohortHandler) CreateProgram(c *gin.Context) {
	var req service.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	program, err := h.service.CreateProgram(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// DeleteProgram godoc
// @Summary Delete a program
// @Tags Cohorts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Success 204 "No Content"
// @Router /programs/{id} [delete]
func (h *CohortHandler) DeleteProgram(c *gin.Context) {
	if err := h.service.DeleteProgram(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLevels godoc
// @Summary List levels
// @Tags Cohorts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /levels [get]
func (h *CohortHandler) ListLevels(c *gin.Context) {
	levels, err := h.service.ListLevels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, levels, nil)
}

// CreateLevel godoc
// @Summary Create a level
// @Tags Cohorts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateLevelRequest true "Level payload"
// @Success 201 {object} response.Envelope
// @Router /levels [post]
func (h *CohortHandler) CreateLevel(c *gin.Context) {
	var req service.CreateLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	level, err := h.service.CreateLevel(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, level)
}

// DeleteLevel godoc
// @Summary Delete a level
// @Tags Cohorts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Level ID"
// @Success 204 "No Content"
// @Router /levels/{id} [delete]
func (h *CohortHandler) DeleteLevel(c *gin.Context) {
	if err := h.service.DeleteLevel(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListGroups godoc
// @Summary List groups of a program and level
// @Tags Cohorts
// @Produce json
// @Param programId query string true "Program ID"
// @Param levelId query string true "Level ID"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *CohortHandler) ListGroups(c *gin.Context) {
	groups, err := h.service.ListGroups(c.Request.Context(), c.Query("programId"), c.Query("levelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// CreateGroup godoc
// @Summary Create a group
// @Tags Cohorts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *CohortHandler) CreateGroup(c *gin.Context) {
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.service.CreateGroup(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// DeleteGroup godoc
// @Summary Delete a group
// @Tags Cohorts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 204 "No Content"
// @Router /groups/{id} [delete]
func (h *CohortHandler) DeleteGroup(c *gin.Context) {
	if err := h.service.DeleteGroup(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
