package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-adp/timetable-api/internal/models"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type fakeDirectory struct {
	recipients  map[string]models.Recipient
	bySelector  func(selector models.CohortSelector) []models.Recipient
	listedCalls int
}

func (f *fakeDirectory) FindRecipientTx(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Recipient, error) {
	r, ok := f.recipients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (f *fakeDirectory) ListStudentsBySelector(ctx context.Context, exec sqlx.ExtContext, selector models.CohortSelector) ([]models.Recipient, error) {
	f.listedCalls++
	if f.bySelector == nil {
		return nil, nil
	}
	return f.bySelector(selector), nil
}

func student(id string) models.Recipient {
	return models.Recipient{PersonID: id, Role: models.RoleStudent}
}

func TestRecipientResolverDeduplicatesOverlappingSelectors(t *testing.T) {
	levelID := "lvl-1"
	groupA := "grp-a"

	// A broad selector (whole level) and a narrow one (group A inside that
	// level) both match the group A students.
	directory := &fakeDirectory{
		recipients: map[string]models.Recipient{
			"inst-1": {PersonID: "inst-1", Role: models.RoleInstructor},
		},
		bySelector: func(selector models.CohortSelector) []models.Recipient {
			if selector.GroupID != nil && *selector.GroupID == groupA {
				return []models.Recipient{student("stud-a1"), student("stud-a2")}
			}
			return []models.Recipient{student("stud-a1"), student("stud-a2"), student("stud-b1")}
		},
	}
	resolver := NewRecipientResolver(directory)

	selectors := []models.CohortSelector{
		{ProgramID: "prog-1", LevelID: &levelID},
		{ProgramID: "prog-1", LevelID: &levelID, GroupID: &groupA},
	}
	recipients, err := resolver.Resolve(context.Background(), nil, "inst-1", selectors)
	require.NoError(t, err)

	require.Len(t, recipients, 4)
	assert.Equal(t, "inst-1", recipients[0].PersonID)
	assert.Equal(t, "stud-a1", recipients[1].PersonID)
	assert.Equal(t, "stud-a2", recipients[2].PersonID)
	assert.Equal(t, "stud-b1", recipients[3].PersonID)
	assert.Equal(t, 2, directory.listedCalls)
}

func TestRecipientResolverInstructorAlsoStudentCountsOnce(t *testing.T) {
	directory := &fakeDirectory{
		recipients: map[string]models.Recipient{
			"person-1": {PersonID: "person-1", Role: models.RoleInstructor},
		},
		bySelector: func(models.CohortSelector) []models.Recipient {
			return []models.Recipient{{PersonID: "person-1", Role: models.RoleStudent}}
		},
	}
	resolver := NewRecipientResolver(directory)

	recipients, err := resolver.Resolve(context.Background(), nil, "person-1", []models.CohortSelector{{ProgramID: "prog-1"}})
	require.NoError(t, err)
	assert.Len(t, recipients, 1)
}

func TestRecipientResolverMissingInstructor(t *testing.T) {
	resolver := NewRecipientResolver(&fakeDirectory{})

	_, err := resolver.Resolve(context.Background(), nil, "ghost", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecipientResolverNoSelectors(t *testing.T) {
	directory := &fakeDirectory{
		recipients: map[string]models.Recipient{
			"inst-1": {PersonID: "inst-1", Role: models.RoleInstructor},
		},
	}
	resolver := NewRecipientResolver(directory)

	recipients, err := resolver.Resolve(context.Background(), nil, "inst-1", nil)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "inst-1", recipients[0].PersonID)
}
