package models

import "time"

// Session represents one scheduled course occurrence.
type Session struct {
	ID           string    `db:"id" json:"id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	Date         string    `db:"session_date" json:"date"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Assignment binds a session to a cohort selector.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	ProgramID string    `db:"program_id" json:"program_id"`
	LevelID   *string   `db:"level_id" json:"level_id,omitempty"`
	GroupID   *string   `db:"group_id" json:"group_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Selector returns the cohort selector carried by the assignment.
func (a Assignment) Selector() CohortSelector {
	return CohortSelector{ProgramID: a.ProgramID, LevelID: a.LevelID, GroupID: a.GroupID}
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	InstructorID string
	RoomID       string
	SubjectID    string
	DateFrom     string
	DateTo       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// TimetableRow is a session joined with the names of its subject,
// instructor and room, ready for display or export.
type TimetableRow struct {
	SessionID      string `db:"session_id" json:"session_id"`
	Date           string `db:"session_date" json:"date"`
	StartTime      string `db:"start_time" json:"start_time"`
	EndTime        string `db:"end_time" json:"end_time"`
	SubjectName    string `db:"subject_name" json:"subject_name"`
	SubjectCode    string `db:"subject_code" json:"subject_code"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	RoomName       string `db:"room_name" json:"room_name"`
}

// ConflictAxis identifies which resource collided.
type ConflictAxis string

const (
	ConflictAxisInstructor ConflictAxis = "instructor"
	ConflictAxisRoom       ConflictAxis = "room"
)

// SessionConflict describes an existing session that blocks a submission.
type SessionConflict struct {
	Axis      ConflictAxis `json:"axis"`
	SessionID string       `json:"session_id"`
	Date      string       `json:"date"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
}

// ConflictError is returned when a submission overlaps an existing session
// on the instructor or room axis.
type ConflictError struct {
	Conflict SessionConflict `json:"conflict"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "session conflicts with an existing " + string(e.Conflict.Axis) + " booking"
}
