package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/campus-adp/timetable-api/internal/models"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type directoryReader interface {
	FindRecipientTx(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Recipient, error)
	ListStudentsBySelector(ctx context.Context, exec sqlx.ExtContext, selector models.CohortSelector) ([]models.Recipient, error)
}

// RecipientResolver computes the deduplicated audience of a session from
// its cohort selectors.
type RecipientResolver struct {
	directory directoryReader
}

// NewRecipientResolver constructs the resolver.
func NewRecipientResolver(directory directoryReader) *RecipientResolver {
	return &RecipientResolver{directory: directory}
}

// Resolve unions the session's instructor with every student matched by at
// least one selector. Overlapping selectors are harmless: a person appears
// exactly once regardless of how many selectors match them. Runs against
// the caller's transaction so the audience reflects the state being
// committed.
func (r *RecipientResolver) Resolve(ctx context.Context, exec sqlx.ExtContext, instructorID string, selectors []models.CohortSelector) ([]models.Recipient, error) {
	seen := make(map[string]models.Recipient)

	if instructorID != "" {
		instructor, err := r.directory.FindRecipientTx(ctx, exec, instructorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
		}
		seen[instructor.PersonID] = *instructor
	}

	for _, selector := range selectors {
		students, err := r.directory.ListStudentsBySelector(ctx, exec, selector)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve cohort members")
		}
		for _, student := range students {
			seen[student.PersonID] = student
		}
	}

	recipients := make([]models.Recipient, 0, len(seen))
	for _, recipient := range seen {
		recipients = append(recipients, recipient)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].PersonID < recipients[j].PersonID })
	return recipients, nil
}
