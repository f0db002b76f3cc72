package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleStudent    UserRole = "STUDENT"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleAdmin      UserRole = "ADMIN"
)

// User represents a person stored in the users table. Students optionally
// carry cohort membership; instructors and admins never do.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	ProgramID    *string   `db:"program_id" json:"program_id,omitempty"`
	LevelID      *string   `db:"level_id" json:"level_id,omitempty"`
	GroupID      *string   `db:"group_id" json:"group_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Recipient is the (person, role) pair handed to delivery collaborators.
type Recipient struct {
	PersonID string   `db:"id" json:"person_id"`
	Role     UserRole `db:"role" json:"role"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
