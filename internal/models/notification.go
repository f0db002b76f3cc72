package models

import "time"

// NotificationKind labels the schedule change that triggered a notification.
type NotificationKind string

const (
	NotificationKindCreated   NotificationKind = "SESSION_CREATED"
	NotificationKindUpdated   NotificationKind = "SESSION_UPDATED"
	NotificationKindCancelled NotificationKind = "SESSION_CANCELLED"
	NotificationKindGeneral   NotificationKind = "GENERAL"
)

// NotificationTargetRole widens TargetRole beyond concrete user roles.
const TargetRoleAll UserRole = "ALL"

// Notification is either personal (RecipientID set, read flag tracked) or
// broadcast (RecipientID nil, visible to everyone matching TargetRole).
// Immutable after creation except for a personal row's read flag.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Title       string           `db:"title" json:"title"`
	Body        string           `db:"body" json:"body"`
	TargetRole  UserRole         `db:"target_role" json:"target_role"`
	RecipientID *string          `db:"recipient_id" json:"recipient_id,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// IsBroadcast reports whether the notification is a shared row.
func (n Notification) IsBroadcast() bool {
	return n.RecipientID == nil
}

// NotificationFilter pages through a person's notification feed.
type NotificationFilter struct {
	Page     int
	PageSize int
}
