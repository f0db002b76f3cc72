package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-adp/timetable-api/internal/delivery"
	"github.com/campus-adp/timetable-api/internal/models"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type fakeTxRunner struct {
	runs int
}

func (f *fakeTxRunner) RunSerializable(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	f.runs++
	return fn(nil)
}

// fakeSessionStore keeps sessions in memory and evaluates the strict
// overlap predicate the same way the SQL query does, so slot arithmetic
// is exercised for real.
type fakeSessionStore struct {
	sessions  map[string]models.Session
	insertErr error
	inserted  []models.Session
	updated   []models.Session
	deleted   []string
}

func newFakeSessionStore(existing ...models.Session) *fakeSessionStore {
	store := &fakeSessionStore{sessions: map[string]models.Session{}}
	for _, s := range existing {
		store.sessions[s.ID] = s
	}
	return store
}

func (f *fakeSessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	var out []models.Session
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeSessionStore) ListForSelector(ctx context.Context, selector models.CohortSelector, dateFrom, dateTo string) ([]models.Session, error) {
	return nil, nil
}

func (f *fakeSessionStore) FindOverlapping(ctx context.Context, exec sqlx.ExtContext, axis models.ConflictAxis, resourceID, date, start, end, excludeID string) ([]models.Session, error) {
	var hits []models.Session
	for _, s := range f.sessions {
		if s.ID == excludeID || s.Date != date {
			continue
		}
		switch axis {
		case models.ConflictAxisInstructor:
			if s.InstructorID != resourceID {
				continue
			}
		case models.ConflictAxisRoom:
			if s.RoomID != resourceID {
				continue
			}
		}
		if s.StartTime < end && s.EndTime > start {
			hits = append(hits, s)
		}
	}
	return hits, nil
}

func (f *fakeSessionStore) Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if session.ID == "" {
		session.ID = "sess-new"
	}
	f.sessions[session.ID] = *session
	f.inserted = append(f.inserted, *session)
	return nil
}

func (f *fakeSessionStore) Update(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	f.sessions[session.ID] = *session
	f.updated = append(f.updated, *session)
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	delete(f.sessions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAssignmentStore struct {
	bySession map[string][]models.Assignment
	replaced  int
}

func (f *fakeAssignmentStore) ListBySession(ctx context.Context, sessionID string) ([]models.Assignment, error) {
	return f.bySession[sessionID], nil
}

func (f *fakeAssignmentStore) ListBySessionTx(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.Assignment, error) {
	return f.bySession[sessionID], nil
}

func (f *fakeAssignmentStore) DeleteBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error {
	delete(f.bySession, sessionID)
	return nil
}

func (f *fakeAssignmentStore) InsertForSession(ctx context.Context, exec sqlx.ExtContext, sessionID string, selectors []models.CohortSelector) ([]models.Assignment, error) {
	if f.bySession == nil {
		f.bySession = map[string][]models.Assignment{}
	}
	assignments := make([]models.Assignment, 0, len(selectors))
	for i, sel := range selectors {
		assignments = append(assignments, models.Assignment{
			ID:        fmt.Sprintf("%s-a%d", sessionID, i),
			SessionID: sessionID,
			ProgramID: sel.ProgramID,
			LevelID:   sel.LevelID,
			GroupID:   sel.GroupID,
		})
	}
	f.bySession[sessionID] = assignments
	return assignments, nil
}

func (f *fakeAssignmentStore) ReplaceForSession(ctx context.Context, exec sqlx.ExtContext, sessionID string, selectors []models.CohortSelector) ([]models.Assignment, error) {
	f.replaced++
	return f.InsertForSession(ctx, exec, sessionID, selectors)
}

type fakeResolver struct {
	recipients []models.Recipient
	err        error
	calls      int
}

func (f *fakeResolver) Resolve(ctx context.Context, exec sqlx.ExtContext, instructorID string, selectors []models.CohortSelector) ([]models.Recipient, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.recipients, nil
}

type writtenBatch struct {
	kind       models.NotificationKind
	title      string
	recipients []models.Recipient
}

type fakeNotificationWriter struct {
	batches []writtenBatch
}

func (f *fakeNotificationWriter) InsertBatchTx(ctx context.Context, exec sqlx.ExtContext, kind models.NotificationKind, title, body string, recipients []models.Recipient) ([]models.Notification, error) {
	f.batches = append(f.batches, writtenBatch{kind: kind, title: title, recipients: recipients})
	return nil, nil
}

type fakeUserReader struct {
	users map[string]*models.User
}

func (f *fakeUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type fakeSubjectReader struct {
	subjects map[string]*models.Subject
}

func (f *fakeSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type fakeRoomReader struct {
	rooms map[string]*models.Room
}

func (f *fakeRoomReader) FindByID(ctx context.Context, id string) (*models.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

type fakeCohortReader struct {
	programs map[string]*models.Program
	levels   map[string]*models.Level
	groups   map[string]*models.Group
}

func (f *fakeCohortReader) FindProgram(ctx context.Context, id string) (*models.Program, error) {
	p, ok := f.programs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeCohortReader) FindLevel(ctx context.Context, id string) (*models.Level, error) {
	l, ok := f.levels[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return l, nil
}

func (f *fakeCohortReader) FindGroup(ctx context.Context, id string) (*models.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g, nil
}

type fakeAvailability struct {
	covered bool
}

func (f *fakeAvailability) CoversInterval(ctx context.Context, instructorID string, weekday int, start, end string) (bool, error) {
	return f.covered, nil
}

type fakeEventSink struct {
	events []delivery.Event
}

func (f *fakeEventSink) Enqueue(event delivery.Event) {
	f.events = append(f.events, event)
}

type fakeInvalidator struct {
	calls [][]models.Recipient
}

func (f *fakeInvalidator) InvalidateUnread(ctx context.Context, recipients []models.Recipient) {
	f.calls = append(f.calls, recipients)
}

type fakeMetricsRecorder struct {
	conflicts     []string
	notifications map[string]int
	queries       []string
	lookups       []bool
}

func (f *fakeMetricsRecorder) CountConflict(axis string) {
	f.conflicts = append(f.conflicts, axis)
}

func (f *fakeMetricsRecorder) CountNotifications(kind string, n int) {
	if f.notifications == nil {
		f.notifications = map[string]int{}
	}
	f.notifications[kind] += n
}

func (f *fakeMetricsRecorder) ObserveDBQuery(label string, duration time.Duration) {
	f.queries = append(f.queries, label)
}

func (f *fakeMetricsRecorder) RecordCacheLookup(hit bool) {
	f.lookups = append(f.lookups, hit)
}

type sessionFixture struct {
	svc         *SessionService
	tx          *fakeTxRunner
	sessions    *fakeSessionStore
	assignments *fakeAssignmentStore
	resolver    *fakeResolver
	writer      *fakeNotificationWriter
	sink        *fakeEventSink
	invalidator *fakeInvalidator
	metrics     *fakeMetricsRecorder
	admin       *models.JWTClaims
}

func newSessionFixture(existing ...models.Session) *sessionFixture {
	f := &sessionFixture{
		tx:          &fakeTxRunner{},
		sessions:    newFakeSessionStore(existing...),
		assignments: &fakeAssignmentStore{bySession: map[string][]models.Assignment{}},
		resolver: &fakeResolver{recipients: []models.Recipient{
			{PersonID: "inst-1", Role: models.RoleInstructor},
			{PersonID: "stud-1", Role: models.RoleStudent},
		}},
		writer:      &fakeNotificationWriter{},
		sink:        &fakeEventSink{},
		invalidator: &fakeInvalidator{},
		metrics:     &fakeMetricsRecorder{},
		admin:       &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin},
	}
	f.svc = NewSessionService(SessionServiceDeps{
		Tx:          f.tx,
		Sessions:    f.sessions,
		Assignments: f.assignments,
		Resolver:    f.resolver,
		Notifications: f.writer,
		Users: &fakeUserReader{users: map[string]*models.User{
			"inst-1": {ID: "inst-1", Role: models.RoleInstructor, Active: true, FullName: "A. Instructor"},
		}},
		Subjects: &fakeSubjectReader{subjects: map[string]*models.Subject{
			"sub-1": {ID: "sub-1", Name: "Databases", Code: "DB101"},
		}},
		Rooms: &fakeRoomReader{rooms: map[string]*models.Room{
			"room-1": {ID: "room-1", Name: "Room 4"},
			"room-2": {ID: "room-2", Name: "Room 5"},
		}},
		Cohorts: &fakeCohortReader{
			programs: map[string]*models.Program{
				"prog-1": {ID: "prog-1", Name: "CS"},
				"prog-2": {ID: "prog-2", Name: "EE"},
			},
			levels:   map[string]*models.Level{"lvl-1": {ID: "lvl-1", Name: "L1"}},
			groups:   map[string]*models.Group{"grp-a": {ID: "grp-a", Name: "A", ProgramID: "prog-1", LevelID: "lvl-1"}},
		},
		Availability: &fakeAvailability{covered: true},
		Dispatcher:   f.sink,
		Invalidator:  f.invalidator,
		Metrics:      f.metrics,
	}, nil, nil)
	return f
}

func validCreateRequest() CreateSessionRequest {
	return CreateSessionRequest{
		SubjectID:    "sub-1",
		InstructorID: "inst-1",
		RoomID:       "room-1",
		Date:         "2026-03-09",
		StartTime:    "09:00",
		EndTime:      "10:30",
		Assignments:  []CohortSelectorRequest{{ProgramID: "prog-1"}},
	}
}

func TestSessionServiceCreateHappyPath(t *testing.T) {
	f := newSessionFixture()

	result, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Session.ID)
	assert.Len(t, result.Assignments, 1)
	assert.Len(t, result.Recipients, 2)
	assert.False(t, result.OutsideAvailability)

	require.Len(t, f.writer.batches, 1)
	assert.Equal(t, models.NotificationKindCreated, f.writer.batches[0].kind)
	assert.Len(t, f.writer.batches[0].recipients, 2)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, result.Session.ID, f.sink.events[0].SessionID)
	require.Len(t, f.invalidator.calls, 1)
	assert.Equal(t, 1, f.tx.runs)
}

func TestSessionServiceCreateInstructorConflict(t *testing.T) {
	f := newSessionFixture(models.Session{
		ID: "sess-1", SubjectID: "sub-1", InstructorID: "inst-1", RoomID: "room-2",
		Date: "2026-03-09", StartTime: "09:00", EndTime: "10:30",
	})

	req := validCreateRequest()
	req.StartTime = "10:00"
	req.EndTime = "11:00"

	_, err := f.svc.Create(context.Background(), f.admin, req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	var conflictErr *models.ConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, models.ConflictAxisInstructor, conflictErr.Conflict.Axis)
	assert.Equal(t, "sess-1", conflictErr.Conflict.SessionID)

	assert.Empty(t, f.sessions.inserted)
	assert.Empty(t, f.writer.batches)
	assert.Empty(t, f.sink.events)
}

func TestSessionServiceCreateRoomConflict(t *testing.T) {
	f := newSessionFixture(models.Session{
		ID: "sess-1", SubjectID: "sub-1", InstructorID: "inst-other", RoomID: "room-1",
		Date: "2026-03-09", StartTime: "08:30", EndTime: "09:30",
	})

	_, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.Error(t, err)

	var conflictErr *models.ConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, models.ConflictAxisRoom, conflictErr.Conflict.Axis)
}

func TestSessionServiceCreateBackToBackAllowed(t *testing.T) {
	f := newSessionFixture(models.Session{
		ID: "sess-1", SubjectID: "sub-1", InstructorID: "inst-1", RoomID: "room-1",
		Date: "2026-03-09", StartTime: "08:00", EndTime: "09:00",
	})

	// New slot starts exactly where the existing one ends.
	result, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Session.ID)
}

func TestSessionServiceCreateRequiresAdmin(t *testing.T) {
	f := newSessionFixture()

	_, err := f.svc.Create(context.Background(), nil, validCreateRequest())
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	instructor := &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}
	_, err = f.svc.Create(context.Background(), instructor, validCreateRequest())
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCreateRejectsInvertedSlot(t *testing.T) {
	f := newSessionFixture()

	req := validCreateRequest()
	req.StartTime = "11:00"
	req.EndTime = "10:00"

	_, err := f.svc.Create(context.Background(), f.admin, req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCreateUnknownGroup(t *testing.T) {
	f := newSessionFixture()

	req := validCreateRequest()
	missing := "grp-missing"
	req.Assignments = []CohortSelectorRequest{{ProgramID: "prog-1", GroupID: &missing}}

	_, err := f.svc.Create(context.Background(), f.admin, req)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCreateGroupProgramMismatch(t *testing.T) {
	f := newSessionFixture()

	req := validCreateRequest()
	group := "grp-a"
	req.Assignments = []CohortSelectorRequest{{ProgramID: "prog-2", GroupID: &group}}

	_, err := f.svc.Create(context.Background(), f.admin, req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCreateOutsideAvailabilityIsAdvisory(t *testing.T) {
	f := newSessionFixture()
	f.svc.availability = &fakeAvailability{covered: false}

	result, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.NoError(t, err)
	assert.True(t, result.OutsideAvailability)
	assert.Len(t, f.writer.batches, 1)
}

func TestSessionServiceCreateExclusionViolationMapsToConflict(t *testing.T) {
	f := newSessionFixture()
	f.sessions.insertErr = &pq.Error{Code: "23P01"}

	_, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.writer.batches)
}

func TestSessionServiceCreateRecordsMetrics(t *testing.T) {
	f := newSessionFixture()

	_, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, f.metrics.notifications[string(models.NotificationKindCreated)])
	assert.Equal(t, []string{"schedule_create"}, f.metrics.queries)
	assert.Empty(t, f.metrics.conflicts)
}

func TestSessionServiceCreateConflictCountsAxis(t *testing.T) {
	f := newSessionFixture(models.Session{
		ID: "sess-1", SubjectID: "sub-1", InstructorID: "inst-1", RoomID: "room-2",
		Date: "2026-03-09", StartTime: "09:00", EndTime: "10:30",
	})

	_, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, []string{string(models.ConflictAxisInstructor)}, f.metrics.conflicts)
}

func TestSessionServiceExclusionViolationCountsRoomAxis(t *testing.T) {
	f := newSessionFixture()
	f.sessions.insertErr = &pq.Error{Code: "23P01", Constraint: "sessions_room_overlap_excl"}

	_, err := f.svc.Create(context.Background(), f.admin, validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, []string{string(models.ConflictAxisRoom)}, f.metrics.conflicts)
}

func TestSessionServiceUpdateExcludesOwnSlot(t *testing.T) {
	existing := models.Session{
		ID: "sess-1", SubjectID: "sub-1", InstructorID: "inst-1", RoomID: "room-1",
		Date: "2026-03-09", StartTime: "09:00", EndTime: "10:30",
	}
	f := newSessionFixture(existing)

	// Same slot, shifted thirty minutes: overlaps only itself.
	req := UpdateSessionRequest{
		SubjectID:    "sub-1",
		InstructorID: "inst-1",
		RoomID:       "room-1",
		Date:         "2026-03-09",
		StartTime:    "09:30",
		EndTime:      "11:00",
		Assignments:  []CohortSelectorRequest{{ProgramID: "prog-1"}},
	}

	result, err := f.svc.Update(context.Background(), f.admin, "sess-1", req)
	require.NoError(t, err)
	assert.Equal(t, "09:30", result.Session.StartTime)
	assert.Equal(t, 1, f.assignments.replaced)

	require.Len(t, f.writer.batches, 1)
	assert.Equal(t, models.NotificationKindUpdated, f.writer.batches[0].kind)
}

func TestSessionServiceUpdateMissingSession(t *testing.T) {
	f := newSessionFixture()

	req := UpdateSessionRequest{
		SubjectID:    "sub-1",
		InstructorID: "inst-1",
		RoomID:       "room-1",
		Date:         "2026-03-09",
		StartTime:    "09:00",
		EndTime:      "10:00",
	}
	_, err := f.svc.Update(context.Background(), f.admin, "sess-404", req)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCancelNotifiesThenDeletes(t *testing.T) {
	existing := models.Session{
		ID: "sess-1", SubjectID: "sub-1", InstructorID: "inst-1", RoomID: "room-1",
		Date: "2026-03-09", StartTime: "09:00", EndTime: "10:30",
	}
	f := newSessionFixture(existing)
	f.assignments.bySession["sess-1"] = []models.Assignment{{ID: "a-1", SessionID: "sess-1", ProgramID: "prog-1"}}

	result, err := f.svc.Cancel(context.Background(), f.admin, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", result.Session.ID)

	require.Len(t, f.writer.batches, 1)
	assert.Equal(t, models.NotificationKindCancelled, f.writer.batches[0].kind)
	assert.Len(t, f.writer.batches[0].recipients, 2)

	assert.Equal(t, []string{"sess-1"}, f.sessions.deleted)
	assert.Empty(t, f.assignments.bySession["sess-1"])
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, models.NotificationKindCancelled, f.sink.events[0].Kind)
}

func TestSessionServiceCancelMissingSession(t *testing.T) {
	f := newSessionFixture()

	_, err := f.svc.Cancel(context.Background(), f.admin, "sess-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.writer.batches)
}

func TestSessionServiceGet(t *testing.T) {
	existing := models.Session{ID: "sess-1", SubjectID: "sub-1", InstructorID: "inst-1", RoomID: "room-1", Date: "2026-03-09", StartTime: "09:00", EndTime: "10:30"}
	f := newSessionFixture(existing)
	f.assignments.bySession["sess-1"] = []models.Assignment{{ID: "a-1", SessionID: "sess-1", ProgramID: "prog-1"}}

	result, err := f.svc.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", result.Session.ID)
	assert.Len(t, result.Assignments, 1)

	_, err = f.svc.Get(context.Background(), "sess-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNormalizeSlotZeroPads(t *testing.T) {
	slot, err := normalizeSlot("2026-03-09", "9:00", "10:30")
	require.NoError(t, err)
	assert.Equal(t, "09:00", slot.start)
	assert.Equal(t, "10:30", slot.end)
}
