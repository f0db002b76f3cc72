package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-adp/timetable-api/internal/models"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type notificationRepository interface {
	InsertBatchTx(ctx context.Context, exec sqlx.ExtContext, kind models.NotificationKind, title, body string, recipients []models.Recipient) ([]models.Notification, error)
	InsertBroadcast(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, personID string, role models.UserRole, filter models.NotificationFilter) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, personID string) (int, error)
	MarkRead(ctx context.Context, personID, notificationID string) error
	DeleteBroadcast(ctx context.Context, id string) error
}

type unreadCounterCache interface {
	Get(ctx context.Context, personID string) (int, bool)
	Set(ctx context.Context, personID string, count int)
	Invalidate(ctx context.Context, personIDs ...string)
}

type notificationMetrics interface {
	CountNotifications(kind string, n int)
	RecordCacheLookup(hit bool)
	ObserveDBQuery(label string, duration time.Duration)
}

// BroadcastRequest creates a single shared notification row.
type BroadcastRequest struct {
	TargetRole string `json:"target_role" validate:"required,targetrole"`
	Title      string `json:"title" validate:"required"`
	Body       string `json:"body" validate:"required"`
}

// NotificationService exposes the notification feed and broadcast
// administration. Personal fan-out rows are written by the session
// lifecycle inside its own transaction; this service handles everything
// that happens outside it.
type NotificationService struct {
	repo      notificationRepository
	cache     unreadCounterCache
	metrics   notificationMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, cache unreadCounterCache, metrics notificationMetrics, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("targetrole", func(fl validator.FieldLevel) bool {
		switch models.UserRole(strings.ToUpper(fl.Field().String())) {
		case models.RoleStudent, models.RoleInstructor, models.RoleAdmin, models.TargetRoleAll:
			return true
		default:
			return false
		}
	})
	return svc
}

// InsertBatchTx writes one personal row per recipient inside the caller's
// transaction. Exposed so the session lifecycle shares this service as its
// notification writer.
func (s *NotificationService) InsertBatchTx(ctx context.Context, exec sqlx.ExtContext, kind models.NotificationKind, title, body string, recipients []models.Recipient) ([]models.Notification, error) {
	return s.repo.InsertBatchTx(ctx, exec, kind, title, body, recipients)
}

// InvalidateUnread drops cached unread counters, called after the
// transaction that changed them has committed.
func (s *NotificationService) InvalidateUnread(ctx context.Context, recipients []models.Recipient) {
	if s.cache == nil {
		return
	}
	ids := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		ids = append(ids, recipient.PersonID)
	}
	s.cache.Invalidate(ctx, ids...)
}

// ListForUser returns the person's feed: personal rows plus broadcasts
// matching their role or ALL.
func (s *NotificationService) ListForUser(ctx context.Context, claims *models.JWTClaims, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	notifications, total, err := s.repo.ListForUser(ctx, claims.UserID, claims.Role, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return notifications, pagination, nil
}

// UnreadCount returns the exact unread counter for personal rows,
// consulting the cache first.
func (s *NotificationService) UnreadCount(ctx context.Context, claims *models.JWTClaims) (int, error) {
	if claims == nil {
		return 0, appErrors.ErrUnauthorized
	}
	if s.cache != nil {
		count, ok := s.cache.Get(ctx, claims.UserID)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(ok)
		}
		if ok {
			return count, nil
		}
	}
	queryStart := time.Now()
	count, err := s.repo.UnreadCount(ctx, claims.UserID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("unread_count", time.Since(queryStart))
	}
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	if s.cache != nil {
		s.cache.Set(ctx, claims.UserID, count)
	}
	return count, nil
}

// MarkRead flips the read flag of one of the person's own personal rows.
func (s *NotificationService) MarkRead(ctx context.Context, claims *models.JWTClaims, notificationID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, claims.UserID, notificationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, claims.UserID)
	}
	return nil
}

// EmitBroadcast creates one shared row visible to everyone matching the
// target role, or to all roles for ALL.
func (s *NotificationService) EmitBroadcast(ctx context.Context, actor *models.JWTClaims, req BroadcastRequest) (*models.Notification, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid broadcast payload")
	}
	notification := &models.Notification{
		Kind:       models.NotificationKindGeneral,
		Title:      req.Title,
		Body:       req.Body,
		TargetRole: models.UserRole(strings.ToUpper(req.TargetRole)),
	}
	if err := s.repo.InsertBroadcast(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create broadcast")
	}
	if s.metrics != nil {
		s.metrics.CountNotifications(string(notification.Kind), 1)
	}
	return notification, nil
}

// DeleteBroadcast removes a broadcast row. Independent of the scheduling
// flow.
func (s *NotificationService) DeleteBroadcast(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteBroadcast(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "broadcast notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete broadcast")
	}
	return nil
}
