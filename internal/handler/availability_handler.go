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

type availabilityService interface {
	ListByInstructor(ctx context.Context, instructorID string) ([]models.InstructorAvailability, error)
	Create(ctx context.Context, actor *models.JWTClaims, req service.CreateAvailabilityRequest) (*models.InstructorAvailability, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

// AvailabilityHandler manages instructor availability endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// ListByInstructor godoc
// @Summary List an instructor's declared availability
// @Tags Availability
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/availability [get]
func (h *AvailabilityHandler) ListByInstructor(c *gin.Context) {
	intervals, err := h.service.ListByInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, intervals, nil)
}

// Create godoc
// @Summary Declare an availability interval
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateAvailabilityRequest true "Availability payload"
// @Success 201 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req service.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	availability, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, availability)
}

// Delete godoc
// @Summary Remove an availability interval
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param id path string true "Availability ID"
// @Success 204 "No Content"
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
