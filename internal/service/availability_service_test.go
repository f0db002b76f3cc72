package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-adp/timetable-api/internal/models"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type fakeAvailabilityRepo struct {
	intervals []models.InstructorAvailability
	createErr error
	deleteErr error
	created   []models.InstructorAvailability
	deleted   []string
}

func (f *fakeAvailabilityRepo) ListByInstructor(ctx context.Context, instructorID string) ([]models.InstructorAvailability, error) {
	return f.intervals, nil
}

func (f *fakeAvailabilityRepo) Create(ctx context.Context, availability *models.InstructorAvailability) error {
	if f.createErr != nil {
		return f.createErr
	}
	availability.ID = "avail-1"
	f.created = append(f.created, *availability)
	return nil
}

func (f *fakeAvailabilityRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAvailabilityUsers struct {
	users map[string]*models.User
}

func (f *fakeAvailabilityUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func availabilityFixture() (*AvailabilityService, *fakeAvailabilityRepo) {
	repo := &fakeAvailabilityRepo{}
	users := &fakeAvailabilityUsers{users: map[string]*models.User{
		"inst-1": {ID: "inst-1", Role: models.RoleInstructor},
		"stud-1": {ID: "stud-1", Role: models.RoleStudent},
	}}
	return NewAvailabilityService(repo, users, nil, nil), repo
}

func TestAvailabilityCreateSelfService(t *testing.T) {
	svc, repo := availabilityFixture()
	actor := &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}

	availability, err := svc.Create(context.Background(), actor, CreateAvailabilityRequest{
		InstructorID: "inst-1",
		Weekday:      1,
		StartTime:    "08:00",
		EndTime:      "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "avail-1", availability.ID)
	require.Len(t, repo.created, 1)
	assert.Equal(t, 1, repo.created[0].Weekday)
}

func TestAvailabilityCreateForbiddenForOtherInstructor(t *testing.T) {
	svc, repo := availabilityFixture()
	actor := &models.JWTClaims{UserID: "inst-2", Role: models.RoleInstructor}

	_, err := svc.Create(context.Background(), actor, CreateAvailabilityRequest{
		InstructorID: "inst-1",
		Weekday:      1,
		StartTime:    "08:00",
		EndTime:      "12:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestAvailabilityCreateAdminForAnyInstructor(t *testing.T) {
	svc, _ := availabilityFixture()
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.Create(context.Background(), actor, CreateAvailabilityRequest{
		InstructorID: "inst-1",
		Weekday:      5,
		StartTime:    "13:00",
		EndTime:      "17:00",
	})
	require.NoError(t, err)
}

func TestAvailabilityCreateRejectsNonInstructor(t *testing.T) {
	svc, _ := availabilityFixture()
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.Create(context.Background(), actor, CreateAvailabilityRequest{
		InstructorID: "stud-1",
		Weekday:      1,
		StartTime:    "08:00",
		EndTime:      "12:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityCreateRejectsInvertedInterval(t *testing.T) {
	svc, _ := availabilityFixture()
	actor := &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}

	_, err := svc.Create(context.Background(), actor, CreateAvailabilityRequest{
		InstructorID: "inst-1",
		Weekday:      1,
		StartTime:    "12:00",
		EndTime:      "08:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityDeleteMissing(t *testing.T) {
	svc, repo := availabilityFixture()
	repo.deleteErr = sql.ErrNoRows
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	err := svc.Delete(context.Background(), actor, "avail-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityDeleteRequiresAdmin(t *testing.T) {
	svc, repo := availabilityFixture()
	actor := &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}

	err := svc.Delete(context.Background(), actor, "avail-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
