package models

import "time"

// Program is the top tier of the cohort hierarchy.
type Program struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Level is an independent tier, e.g. year of study.
type Level struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Group is the leaf tier, always scoped to exactly one Program+Level pair
// and unique by name within it.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ProgramID string    `db:"program_id" json:"program_id"`
	LevelID   string    `db:"level_id" json:"level_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CohortSelector targets a population of students. Program is always
// required; a nil Level or Group widens the scope at that tier.
type CohortSelector struct {
	ProgramID string  `json:"program_id"`
	LevelID   *string `json:"level_id,omitempty"`
	GroupID   *string `json:"group_id,omitempty"`
}
