package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/pkg/database"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type availabilityRepository interface {
	ListByInstructor(ctx context.Context, instructorID string) ([]models.InstructorAvailability, error)
	Create(ctx context.Context, availability *models.InstructorAvailability) error
	Delete(ctx context.Context, id string) error
}

type availabilityUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateAvailabilityRequest declares a weekly interval an instructor
// is available to teach. Weekday follows time.Weekday: 0 is Sunday.
type CreateAvailabilityRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
	Weekday      int    `json:"weekday" validate:"min=0,max=6"`
	StartTime    string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string `json:"end_time" validate:"required,datetime=15:04"`
}

// AvailabilityService manages instructor availability declarations.
type AvailabilityService struct {
	repo      availabilityRepository
	users     availabilityUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(repo availabilityRepository, users availabilityUserReader, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, users: users, validator: validate, logger: logger}
}

// ListByInstructor returns an instructor's declared intervals.
func (s *AvailabilityService) ListByInstructor(ctx context.Context, instructorID string) ([]models.InstructorAvailability, error) {
	if instructorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor_id is required")
	}
	intervals, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	return intervals, nil
}

// Create declares an availability interval. Instructors may declare
// their own; admins may declare for anyone.
func (s *AvailabilityService) Create(ctx context.Context, actor *models.JWTClaims, req CreateAvailabilityRequest) (*models.InstructorAvailability, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role != models.RoleAdmin && actor.UserID != req.InstructorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot declare availability for another instructor")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	start, end, err := normalizeInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if user.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not an instructor")
	}

	availability := &models.InstructorAvailability{
		InstructorID: req.InstructorID,
		Weekday:      req.Weekday,
		StartTime:    start,
		EndTime:      end,
	}
	if err := s.repo.Create(ctx, availability); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrIntegrity, "an availability already starts at this time on this weekday")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability")
	}
	return availability, nil
}

// Delete removes an availability interval.
func (s *AvailabilityService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability")
	}
	return nil
}

func normalizeInterval(start, end string) (string, string, error) {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	et, err := time.Parse("15:04", end)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !st.Before(et) {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return st.Format("15:04"), et.Format("15:04"), nil
}
