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

const notificationColumns = "id, kind, title, body, target_role, recipient_id, read, created_at"

// NotificationRepository persists personal and broadcast notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatchTx stores one personal row per recipient inside the caller's
// transaction. Rows are committed with the triggering schedule mutation or
// not at all.
func (r *NotificationRepository) InsertBatchTx(ctx context.Context, exec sqlx.ExtContext, kind models.NotificationKind, title, body string, recipients []models.Recipient) ([]models.Notification, error) {
	now := time.Now().UTC()
	notifications := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		id := recipient.PersonID
		notification := models.Notification{
			ID:          uuid.NewString(),
			Kind:        kind,
			Title:       title,
			Body:        body,
			TargetRole:  recipient.Role,
			RecipientID: &id,
			Read:        false,
			CreatedAt:   now,
		}
		const query = `INSERT INTO notifications (id, kind, title, body, target_role, recipient_id, read, created_at)
VALUES (:id, :kind, :title, :body, :target_role, :recipient_id, :read, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, exec, query, &notification); err != nil {
			return nil, fmt.Errorf("insert personal notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

// InsertBroadcast stores a single unscoped row visible by role match.
func (r *NotificationRepository) InsertBroadcast(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, kind, title, body, target_role, recipient_id, read, created_at)
VALUES (:id, :kind, :title, :body, :target_role, :recipient_id, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("insert broadcast notification: %w", err)
	}
	return nil
}

// ListForUser returns the union of personal rows addressed to the person
// and broadcast rows matching their role or ALL, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, personID string, role models.UserRole, filter models.NotificationFilter) ([]models.Notification, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	const base = `FROM notifications WHERE recipient_id = $1 OR (recipient_id IS NULL AND (target_role = $2 OR target_role = $3))`

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, base, size, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, personID, role, models.TargetRoleAll); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, personID, role, models.TargetRoleAll); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// UnreadCount returns the exact number of unread personal rows. Broadcast
// rows carry no per-person read state and are excluded.
func (r *NotificationRepository) UnreadCount(ctx context.Context, personID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE", personID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips the read flag of a personal notification owned by the
// person. Returns sql.ErrNoRows when no such row exists.
func (r *NotificationRepository) MarkRead(ctx context.Context, personID, notificationID string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2", notificationID, personID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBroadcast removes a broadcast row. Personal rows are immutable
// history and cannot be deleted through this path.
func (r *NotificationRepository) DeleteBroadcast(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1 AND recipient_id IS NULL", id)
	if err != nil {
		return fmt.Errorf("delete broadcast notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete broadcast notification: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
