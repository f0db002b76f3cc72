package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-adp/timetable-api/internal/models"
)

// AssignmentRepository persists the cohort selectors attached to sessions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListBySession returns the assignments of a session.
func (r *AssignmentRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Assignment, error) {
	const query = `SELECT id, session_id, program_id, level_id, group_id, created_at FROM session_assignments WHERE session_id = $1 ORDER BY created_at ASC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, sessionID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// ListBySessionTx reads assignments inside the caller's transaction, used
// when cancellation resolves recipients against the pre-delete state.
func (r *AssignmentRepository) ListBySessionTx(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.Assignment, error) {
	const query = `SELECT id, session_id, program_id, level_id, group_id, created_at FROM session_assignments WHERE session_id = $1 ORDER BY created_at ASC`
	var assignments []models.Assignment
	if err := sqlx.SelectContext(ctx, exec, &assignments, query, sessionID); err != nil {
		return nil, fmt.Errorf("list assignments in tx: %w", err)
	}
	return assignments, nil
}

// InsertForSession stores one assignment row per selector inside the
// caller's transaction.
func (r *AssignmentRepository) InsertForSession(ctx context.Context, exec sqlx.ExtContext, sessionID string, selectors []models.CohortSelector) ([]models.Assignment, error) {
	now := time.Now().UTC()
	assignments := make([]models.Assignment, 0, len(selectors))
	for _, sel := range selectors {
		assignment := models.Assignment{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			ProgramID: sel.ProgramID,
			LevelID:   sel.LevelID,
			GroupID:   sel.GroupID,
			CreatedAt: now,
		}
		const query = `INSERT INTO session_assignments (id, session_id, program_id, level_id, group_id, created_at)
VALUES (:id, :session_id, :program_id, :level_id, :group_id, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, exec, query, &assignment); err != nil {
			return nil, fmt.Errorf("insert assignment: %w", err)
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

// DeleteBySession removes all assignments of a session inside the
// caller's transaction.
func (r *AssignmentRepository) DeleteBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM session_assignments WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}

// ReplaceForSession atomically swaps a session's assignments for the
// submitted set: delete-then-recreate within the caller's transaction.
func (r *AssignmentRepository) ReplaceForSession(ctx context.Context, exec sqlx.ExtContext, sessionID string, selectors []models.CohortSelector) ([]models.Assignment, error) {
	if err := r.DeleteBySession(ctx, exec, sessionID); err != nil {
		return nil, err
	}
	return r.InsertForSession(ctx, exec, sessionID, selectors)
}
