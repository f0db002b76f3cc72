package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-adp/timetable-api/internal/models"
)

const sessionColumns = "id, subject_id, instructor_id, room_id, session_date, start_time, end_time, description, created_at, updated_at"

// SessionRepository provides persistence for scheduled sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions with optional filtering and pagination.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	base := "FROM sessions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, fmt.Sprintf("session_date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, fmt.Sprintf("session_date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"session_date": true,
		"start_time":   true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "session_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", sessionColumns, base, sortBy, order, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListForSelector returns sessions targeted at a cohort, for timetable
// views and exports. A session with an assignment whose level or group is
// unset matches any level or group of the selector's program.
func (r *SessionRepository) ListForSelector(ctx context.Context, selector models.CohortSelector, dateFrom, dateTo string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT DISTINCT s.%s FROM sessions s
JOIN session_assignments a ON a.session_id = s.id
WHERE a.program_id = $1`,
		strings.ReplaceAll(sessionColumns, ", ", ", s."))
	args := []interface{}{selector.ProgramID}

	if selector.LevelID != nil && *selector.LevelID != "" {
		args = append(args, *selector.LevelID)
		query += fmt.Sprintf(" AND (a.level_id IS NULL OR a.level_id = $%d)", len(args))
	}
	if selector.GroupID != nil && *selector.GroupID != "" {
		args = append(args, *selector.GroupID)
		query += fmt.Sprintf(" AND (a.group_id IS NULL OR a.group_id = $%d)", len(args))
	}
	if dateFrom != "" {
		args = append(args, dateFrom)
		query += fmt.Sprintf(" AND s.session_date >= $%d", len(args))
	}
	if dateTo != "" {
		args = append(args, dateTo)
		query += fmt.Sprintf(" AND s.session_date <= $%d", len(args))
	}
	query += " ORDER BY s.session_date ASC, s.start_time ASC"

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions for cohort: %w", err)
	}
	return sessions, nil
}

// FindOverlapping returns sessions on the same date whose interval
// strictly overlaps [start, end) on the given axis. Back-to-back slots do
// not overlap. The session being edited, if any, is excluded.
func (r *SessionRepository) FindOverlapping(ctx context.Context, exec sqlx.ExtContext, axis models.ConflictAxis, resourceID, date, start, end, excludeID string) ([]models.Session, error) {
	var column string
	switch axis {
	case models.ConflictAxisInstructor:
		column = "instructor_id"
	case models.ConflictAxisRoom:
		column = "room_id"
	default:
		return nil, fmt.Errorf("unknown conflict axis %q", axis)
	}

	query := fmt.Sprintf("SELECT %s FROM sessions WHERE %s = $1 AND session_date = $2 AND start_time < $3 AND end_time > $4 AND id <> $5", sessionColumns, column)
	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, exec, &sessions, query, resourceID, date, end, start, excludeID); err != nil {
		return nil, fmt.Errorf("find overlapping sessions: %w", err)
	}
	return sessions, nil
}

// Insert stores a new session inside the caller's transaction.
func (r *SessionRepository) Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (id, subject_id, instructor_id, room_id, session_date, start_time, end_time, description, created_at, updated_at)
VALUES (:id, :subject_id, :instructor_id, :room_id, :session_date, :start_time, :end_time, :description, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update modifies a session record inside the caller's transaction.
func (r *SessionRepository) Update(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET subject_id = :subject_id, instructor_id = :instructor_id, room_id = :room_id, session_date = :session_date, start_time = :start_time, end_time = :end_time, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ListTimetableRows returns sessions joined with subject, instructor and
// room names, ordered for timetable display.
func (r *SessionRepository) ListTimetableRows(ctx context.Context, filter models.SessionFilter) ([]models.TimetableRow, error) {
	query := `SELECT s.id AS session_id, s.session_date, s.start_time, s.end_time,
sub.name AS subject_name, sub.code AS subject_code, u.full_name AS instructor_name, rm.name AS room_name
FROM sessions s
JOIN subjects sub ON sub.id = s.subject_id
JOIN users u ON u.id = s.instructor_id
JOIN rooms rm ON rm.id = s.room_id
WHERE 1=1`
	var args []interface{}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		query += fmt.Sprintf(" AND s.instructor_id = $%d", len(args))
	}
	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		query += fmt.Sprintf(" AND s.room_id = $%d", len(args))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		query += fmt.Sprintf(" AND s.subject_id = $%d", len(args))
	}
	if filter.DateFrom != "" {
		args = append(args, filter.DateFrom)
		query += fmt.Sprintf(" AND s.session_date >= $%d", len(args))
	}
	if filter.DateTo != "" {
		args = append(args, filter.DateTo)
		query += fmt.Sprintf(" AND s.session_date <= $%d", len(args))
	}
	query += " ORDER BY s.session_date ASC, s.start_time ASC"

	rows := []models.TimetableRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable rows: %w", err)
	}
	return rows, nil
}

// Delete removes a session; assignments cascade at the storage layer.
func (r *SessionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
