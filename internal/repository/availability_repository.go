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

// AvailabilityRepository persists declared instructor availability.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByInstructor returns the declared intervals of an instructor.
func (r *AvailabilityRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.InstructorAvailability, error) {
	const query = `SELECT id, instructor_id, weekday, start_time, end_time, created_at FROM instructor_availabilities WHERE instructor_id = $1 ORDER BY weekday ASC, start_time ASC`
	var intervals []models.InstructorAvailability
	if err := r.db.SelectContext(ctx, &intervals, query, instructorID); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return intervals, nil
}

// Create stores a declared interval. Uniqueness per (instructor, weekday,
// start) is enforced by the storage layer.
func (r *AvailabilityRepository) Create(ctx context.Context, availability *models.InstructorAvailability) error {
	if availability.ID == "" {
		availability.ID = uuid.NewString()
	}
	if availability.CreatedAt.IsZero() {
		availability.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO instructor_availabilities (id, instructor_id, weekday, start_time, end_time, created_at)
VALUES (:id, :instructor_id, :weekday, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// Delete removes a declared interval.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM instructor_availabilities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete availability rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CoversInterval reports whether any declared interval for the weekday
// fully contains [start, end). Used purely as advisory data.
func (r *AvailabilityRepository) CoversInterval(ctx context.Context, instructorID string, weekday int, start, end string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM instructor_availabilities WHERE instructor_id = $1 AND weekday = $2 AND start_time <= $3 AND end_time >= $4)`
	var covered bool
	if err := r.db.GetContext(ctx, &covered, query, instructorID, weekday, start, end); err != nil {
		return false, fmt.Errorf("check availability coverage: %w", err)
	}
	return covered, nil
}
