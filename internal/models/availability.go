package models

import "time"

// InstructorAvailability is a declared weekly availability interval.
// Advisory data only: sessions outside it are accepted with a warning.
type InstructorAvailability struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Weekday      int       `db:"weekday" json:"weekday"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
