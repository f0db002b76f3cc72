package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/pkg/database"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type cohortRepository interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	FindProgram(ctx context.Context, id string) (*models.Program, error)
	CreateProgram(ctx context.Context, program *models.Program) error
	DeleteProgram(ctx context.Context, id string) error
	ListLevels(ctx context.Context) ([]models.Level, error)
	FindLevel(ctx context.Context, id string) (*models.Level, error)
	CreateLevel(ctx context.Context, level *models.Level) error
	DeleteLevel(ctx context.Context, id string) error
	ListGroups(ctx context.Context, programID, levelID string) ([]models.Group, error)
	FindGroup(ctx context.Context, id string) (*models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	DeleteGroup(ctx context.Context, id string) error
}

// CreateProgramRequest names a new program.
type CreateProgramRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateLevelRequest names a new level.
type CreateLevelRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateGroupRequest scopes a new group to a program+level pair.
type CreateGroupRequest struct {
	Name      string `json:"name" validate:"required"`
	ProgramID string `json:"program_id" validate:"required"`
	LevelID   string `json:"level_id" validate:"required"`
}

// CohortService manages the Program / Level / Group hierarchy.
type CohortService struct {
	repo      cohortRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCohortService constructs the service.
func NewCohortService(repo cohortRepository, validate *validator.Validate, logger *zap.Logger) *CohortService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CohortService{repo: repo, validator: validate, logger: logger}
}

// ListPrograms returns all programs.
func (s *CohortService) ListPrograms(ctx context.Context) ([]models.Program, error) {
	programs, err := s.repo.ListPrograms(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	return programs, nil
}

// CreateProgram registers a program.
func (s *CohortService) CreateProgram(ctx context.Context, actor *models.JWTClaims, req CreateProgramRequest) (*models.Program, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	program := &models.Program{Name: req.Name}
	if err := s.repo.CreateProgram(ctx, program); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrIntegrity, "a program with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

// DeleteProgram removes a program. Programs still referenced by groups,
// students or assignments cannot be removed.
func (s *CohortService) DeleteProgram(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteProgram(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrIntegrity, "program is still referenced")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete program")
	}
	return nil
}

// ListLevels returns all levels.
func (s *CohortService) ListLevels(ctx context.Context) ([]models.Level, error) {
	levels, err := s.repo.ListLevels(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list levels")
	}
	return levels, nil
}

// CreateLevel registers a level.
func (s *CohortService) CreateLevel(ctx context.Context, actor *models.JWTClaims, req CreateLevelRequest) (*models.Level, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid level payload")
	}
	level := &models.Level{Name: req.Name}
	if err := s.repo.CreateLevel(ctx, level); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrIntegrity, "a level with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create level")
	}
	return level, nil
}

// DeleteLevel removes a level. Levels still referenced by groups,
// students or assignments cannot be removed.
func (s *CohortService) DeleteLevel(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteLevel(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "level not found")
		}
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrIntegrity, "level is still referenced")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete level")
	}
	return nil
}

// ListGroups returns the groups of a program+level pair.
func (s *CohortService) ListGroups(ctx context.Context, programID, levelID string) ([]models.Group, error) {
	if programID == "" || levelID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program_id and level_id are required")
	}
	groups, err := s.repo.ListGroups(ctx, programID, levelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// CreateGroup registers a group inside its program+level pair. Group
// names are unique within that pair.
func (s *CohortService) CreateGroup(ctx context.Context, actor *models.JWTClaims, req CreateGroupRequest) (*models.Group, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if _, err := s.repo.FindProgram(ctx, req.ProgramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if _, err := s.repo.FindLevel(ctx, req.LevelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "level not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load level")
	}
	group := &models.Group{Name: req.Name, ProgramID: req.ProgramID, LevelID: req.LevelID}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrIntegrity, "a group with this name already exists in the program and level")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// DeleteGroup removes a group.
func (s *CohortService) DeleteGroup(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repo.FindGroup(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}
