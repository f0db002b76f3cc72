package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-adp/timetable-api/internal/models"
)

// CohortRepository persists the Program / Level / Group hierarchy.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository creates the repository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

// ListPrograms returns all programs ordered by name.
func (r *CohortRepository) ListPrograms(ctx context.Context) ([]models.Program, error) {
	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, "SELECT id, name, created_at, updated_at FROM programs ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// FindProgram loads a program by id.
func (r *CohortRepository) FindProgram(ctx context.Context, id string) (*models.Program, error) {
	var program models.Program
	if err := r.db.GetContext(ctx, &program, "SELECT id, name, created_at, updated_at FROM programs WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &program, nil
}

// CreateProgram stores a new program.
func (r *CohortRepository) CreateProgram(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now
	const query = `INSERT INTO programs (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// DeleteProgram removes a program by id. Referencing rows block the
// delete with a foreign key violation.
func (r *CohortRepository) DeleteProgram(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM programs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListLevels returns all levels ordered by name.
func (r *CohortRepository) ListLevels(ctx context.Context) ([]models.Level, error) {
	var levels []models.Level
	if err := r.db.SelectContext(ctx, &levels, "SELECT id, name, created_at, updated_at FROM levels ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

// FindLevel loads a level by id.
func (r *CohortRepository) FindLevel(ctx context.Context, id string) (*models.Level, error) {
	var level models.Level
	if err := r.db.GetContext(ctx, &level, "SELECT id, name, created_at, updated_at FROM levels WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &level, nil
}

// CreateLevel stores a new level.
func (r *CohortRepository) CreateLevel(ctx context.Context, level *models.Level) error {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	level.CreatedAt = now
	level.UpdatedAt = now
	const query = `INSERT INTO levels (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, level); err != nil {
		return fmt.Errorf("create level: %w", err)
	}
	return nil
}

// DeleteLevel removes a level by id. Referencing rows block the delete
// with a foreign key violation.
func (r *CohortRepository) DeleteLevel(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM levels WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete level: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListGroups returns the groups of a program+level pair.
func (r *CohortRepository) ListGroups(ctx context.Context, programID, levelID string) ([]models.Group, error) {
	const query = `SELECT id, name, program_id, level_id, created_at, updated_at FROM groups WHERE program_id = $1 AND level_id = $2 ORDER BY name ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, programID, levelID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindGroup loads a group by id.
func (r *CohortRepository) FindGroup(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, name, program_id, level_id, created_at, updated_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateGroup stores a new group. The storage layer enforces name
// uniqueness within the program+level pair.
func (r *CohortRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	const query = `INSERT INTO groups (id, name, program_id, level_id, created_at, updated_at) VALUES (:id, :name, :program_id, :level_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group by id.
func (r *CohortRepository) DeleteGroup(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM groups WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
