package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-adp/timetable-api/internal/delivery"
	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/pkg/database"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
)

type txRunner interface {
	RunSerializable(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListForSelector(ctx context.Context, selector models.CohortSelector, dateFrom, dateTo string) ([]models.Session, error)
	FindOverlapping(ctx context.Context, exec sqlx.ExtContext, axis models.ConflictAxis, resourceID, date, start, end, excludeID string) ([]models.Session, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
	Update(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type assignmentRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Assignment, error)
	ListBySessionTx(ctx context.Context, exec sqlx.ExtContext, sessionID string) ([]models.Assignment, error)
	DeleteBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error
	InsertForSession(ctx context.Context, exec sqlx.ExtContext, sessionID string, selectors []models.CohortSelector) ([]models.Assignment, error)
	ReplaceForSession(ctx context.Context, exec sqlx.ExtContext, sessionID string, selectors []models.CohortSelector) ([]models.Assignment, error)
}

type recipientResolver interface {
	Resolve(ctx context.Context, exec sqlx.ExtContext, instructorID string, selectors []models.CohortSelector) ([]models.Recipient, error)
}

type notificationWriter interface {
	InsertBatchTx(ctx context.Context, exec sqlx.ExtContext, kind models.NotificationKind, title, body string, recipients []models.Recipient) ([]models.Notification, error)
}

type sessionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type cohortReader interface {
	FindProgram(ctx context.Context, id string) (*models.Program, error)
	FindLevel(ctx context.Context, id string) (*models.Level, error)
	FindGroup(ctx context.Context, id string) (*models.Group, error)
}

type availabilityReader interface {
	CoversInterval(ctx context.Context, instructorID string, weekday int, start, end string) (bool, error)
}

type eventDispatcher interface {
	Enqueue(event delivery.Event)
}

type unreadInvalidator interface {
	InvalidateUnread(ctx context.Context, recipients []models.Recipient)
}

type schedulingMetrics interface {
	CountConflict(axis string)
	CountNotifications(kind string, n int)
	ObserveDBQuery(label string, duration time.Duration)
}

// CohortSelectorRequest is one cohort selector tuple in a submission.
type CohortSelectorRequest struct {
	ProgramID string  `json:"program_id" validate:"required"`
	LevelID   *string `json:"level_id"`
	GroupID   *string `json:"group_id"`
}

// CreateSessionRequest describes payload for scheduling a session.
type CreateSessionRequest struct {
	SubjectID    string                  `json:"subject_id" validate:"required"`
	InstructorID string                  `json:"instructor_id" validate:"required"`
	RoomID       string                  `json:"room_id" validate:"required"`
	Date         string                  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string                  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string                  `json:"end_time" validate:"required,datetime=15:04"`
	Description  string                  `json:"description"`
	Assignments  []CohortSelectorRequest `json:"assignments" validate:"dive"`
}

// UpdateSessionRequest reschedules an existing session.
type UpdateSessionRequest struct {
	SubjectID    string                  `json:"subject_id" validate:"required"`
	InstructorID string                  `json:"instructor_id" validate:"required"`
	RoomID       string                  `json:"room_id" validate:"required"`
	Date         string                  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string                  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string                  `json:"end_time" validate:"required,datetime=15:04"`
	Description  string                  `json:"description"`
	Assignments  []CohortSelectorRequest `json:"assignments" validate:"dive"`
}

// SessionResult is the outcome of a schedule mutation.
type SessionResult struct {
	Session             models.Session      `json:"session"`
	Assignments         []models.Assignment `json:"assignments"`
	Recipients          []models.Recipient  `json:"recipients"`
	OutsideAvailability bool                `json:"outside_availability,omitempty"`
}

// SessionService orchestrates the session lifecycle: conflict detection,
// assignment replacement, recipient resolution and notification fan-out,
// all inside one serializable transaction per mutation.
type SessionService struct {
	tx            txRunner
	sessions      sessionRepository
	assignments   assignmentRepository
	resolver      recipientResolver
	notifications notificationWriter
	users         sessionUserReader
	subjects      subjectReader
	rooms         roomReader
	cohorts       cohortReader
	availability  availabilityReader
	dispatcher    eventDispatcher
	invalidator   unreadInvalidator
	metrics       schedulingMetrics
	validator     *validator.Validate
	logger        *zap.Logger
}

// SessionServiceDeps bundles the collaborators of SessionService.
type SessionServiceDeps struct {
	Tx            txRunner
	Sessions      sessionRepository
	Assignments   assignmentRepository
	Resolver      recipientResolver
	Notifications notificationWriter
	Users         sessionUserReader
	Subjects      subjectReader
	Rooms         roomReader
	Cohorts       cohortReader
	Availability  availabilityReader
	Dispatcher    eventDispatcher
	Invalidator   unreadInvalidator
	Metrics       schedulingMetrics
}

// NewSessionService instantiates SessionService.
func NewSessionService(deps SessionServiceDeps, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		tx:            deps.Tx,
		sessions:      deps.Sessions,
		assignments:   deps.Assignments,
		resolver:      deps.Resolver,
		notifications: deps.Notifications,
		users:         deps.Users,
		subjects:      deps.Subjects,
		rooms:         deps.Rooms,
		cohorts:       deps.Cohorts,
		availability:  deps.Availability,
		dispatcher:    deps.Dispatcher,
		invalidator:   deps.Invalidator,
		metrics:       deps.Metrics,
		validator:     validate,
		logger:        logger,
	}
}

// List returns sessions with pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return sessions, pagination, nil
}

// Get returns a session and its assignments.
func (s *SessionService) Get(ctx context.Context, id string) (*SessionResult, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	assignments, err := s.assignments.ListBySession(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	return &SessionResult{Session: *session, Assignments: assignments}, nil
}

// ListForCohort returns the timetable of a cohort within a date range.
func (s *SessionService) ListForCohort(ctx context.Context, selector models.CohortSelector, dateFrom, dateTo string) ([]models.Session, error) {
	if selector.ProgramID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program_id is required")
	}
	sessions, err := s.sessions.ListForSelector(ctx, selector, dateFrom, dateTo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohort sessions")
	}
	return sessions, nil
}

// Create schedules a new session and fans out "created" notifications.
func (s *SessionService) Create(ctx context.Context, actor *models.JWTClaims, req CreateSessionRequest) (*SessionResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	slot, err := normalizeSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	subject, room, err := s.verifyReferences(ctx, req.SubjectID, req.InstructorID, req.RoomID)
	if err != nil {
		return nil, err
	}
	selectors, err := s.verifySelectors(ctx, req.Assignments)
	if err != nil {
		return nil, err
	}

	session := models.Session{
		SubjectID:    req.SubjectID,
		InstructorID: req.InstructorID,
		RoomID:       req.RoomID,
		Date:         slot.date,
		StartTime:    slot.start,
		EndTime:      slot.end,
		Description:  req.Description,
	}

	outside := s.checkAvailability(ctx, session)

	title := fmt.Sprintf("New session: %s", subject.Name)
	body := fmt.Sprintf("%s on %s from %s to %s in %s", subject.Name, slot.date, slot.start, slot.end, room.Name)

	result := &SessionResult{OutsideAvailability: outside}
	txStart := time.Now()
	err = s.tx.RunSerializable(ctx, func(tx *sqlx.Tx) error {
		if err := s.ensureNoConflict(ctx, tx, session, ""); err != nil {
			return err
		}
		if err := s.sessions.Insert(ctx, tx, &session); err != nil {
			return s.classifyWriteError(err)
		}
		assignments, err := s.assignments.InsertForSession(ctx, tx, session.ID, selectors)
		if err != nil {
			return s.classifyWriteError(err)
		}
		recipients, err := s.resolver.Resolve(ctx, tx, session.InstructorID, selectors)
		if err != nil {
			return err
		}
		if _, err := s.notifications.InsertBatchTx(ctx, tx, models.NotificationKindCreated, title, body, recipients); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write notifications")
		}
		result.Session = session
		result.Assignments = assignments
		result.Recipients = recipients
		return nil
	})
	s.observeTx("schedule_create", txStart)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, models.NotificationKindCreated, result, title, body)
	return result, nil
}

// Update reschedules a session, atomically replaces its assignments and
// fans out "updated" notifications to the recomputed audience. Recipients
// dropped by the new assignments are not notified.
func (s *SessionService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateSessionRequest) (*SessionResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	slot, err := normalizeSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	existing, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	subject, room, err := s.verifyReferences(ctx, req.SubjectID, req.InstructorID, req.RoomID)
	if err != nil {
		return nil, err
	}
	selectors, err := s.verifySelectors(ctx, req.Assignments)
	if err != nil {
		return nil, err
	}

	session := models.Session{
		ID:           existing.ID,
		SubjectID:    req.SubjectID,
		InstructorID: req.InstructorID,
		RoomID:       req.RoomID,
		Date:         slot.date,
		StartTime:    slot.start,
		EndTime:      slot.end,
		Description:  req.Description,
		CreatedAt:    existing.CreatedAt,
	}

	outside := s.checkAvailability(ctx, session)

	title := fmt.Sprintf("Session updated: %s", subject.Name)
	body := fmt.Sprintf("%s moved to %s from %s to %s in %s", subject.Name, slot.date, slot.start, slot.end, room.Name)

	result := &SessionResult{OutsideAvailability: outside}
	txStart := time.Now()
	err = s.tx.RunSerializable(ctx, func(tx *sqlx.Tx) error {
		if err := s.ensureNoConflict(ctx, tx, session, session.ID); err != nil {
			return err
		}
		if err := s.sessions.Update(ctx, tx, &session); err != nil {
			return s.classifyWriteError(err)
		}
		assignments, err := s.assignments.ReplaceForSession(ctx, tx, session.ID, selectors)
		if err != nil {
			return s.classifyWriteError(err)
		}
		recipients, err := s.resolver.Resolve(ctx, tx, session.InstructorID, selectors)
		if err != nil {
			return err
		}
		if _, err := s.notifications.InsertBatchTx(ctx, tx, models.NotificationKindUpdated, title, body, recipients); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write notifications")
		}
		result.Session = session
		result.Assignments = assignments
		result.Recipients = recipients
		return nil
	})
	s.observeTx("schedule_update", txStart)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, models.NotificationKindUpdated, result, title, body)
	return result, nil
}

// Cancel notifies the current audience, then removes the session and its
// assignments. The cancellation is one atomic unit; notification rows
// outlive the deleted session.
func (s *SessionService) Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*SessionResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	subjectName := existing.SubjectID
	if subject, err := s.subjects.FindByID(ctx, existing.SubjectID); err == nil {
		subjectName = subject.Name
	}
	title := fmt.Sprintf("Session cancelled: %s", subjectName)
	body := fmt.Sprintf("The session of %s on %s from %s to %s has been cancelled", subjectName, existing.Date, existing.StartTime, existing.EndTime)

	result := &SessionResult{Session: *existing}
	txStart := time.Now()
	err = s.tx.RunSerializable(ctx, func(tx *sqlx.Tx) error {
		assignments, err := s.assignments.ListBySessionTx(ctx, tx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
		selectors := make([]models.CohortSelector, 0, len(assignments))
		for _, assignment := range assignments {
			selectors = append(selectors, assignment.Selector())
		}
		recipients, err := s.resolver.Resolve(ctx, tx, existing.InstructorID, selectors)
		if err != nil {
			return err
		}
		if _, err := s.notifications.InsertBatchTx(ctx, tx, models.NotificationKindCancelled, title, body, recipients); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write notifications")
		}
		if err := s.assignments.DeleteBySession(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignments")
		}
		if err := s.sessions.Delete(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
		}
		result.Assignments = assignments
		result.Recipients = recipients
		return nil
	})
	s.observeTx("schedule_cancel", txStart)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, models.NotificationKindCancelled, result, title, body)
	return result, nil
}

// ensureNoConflict runs the overlap test per axis inside the mutation's
// transaction. Two intervals [s1,e1) and [s2,e2) conflict iff s1 < e2 and
// e1 > s2; touching endpoints are allowed. The instructor axis is checked
// first, so a double hit reports the instructor.
func (s *SessionService) ensureNoConflict(ctx context.Context, tx *sqlx.Tx, session models.Session, excludeID string) error {
	axes := []struct {
		axis       models.ConflictAxis
		resourceID string
	}{
		{models.ConflictAxisInstructor, session.InstructorID},
		{models.ConflictAxisRoom, session.RoomID},
	}

	for _, a := range axes {
		overlaps, err := s.sessions.FindOverlapping(ctx, tx, a.axis, a.resourceID, session.Date, session.StartTime, session.EndTime, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict check failed")
		}
		if len(overlaps) > 0 {
			hit := overlaps[0]
			if s.metrics != nil {
				s.metrics.CountConflict(string(a.axis))
			}
			conflictErr := &models.ConflictError{Conflict: models.SessionConflict{
				Axis:      a.axis,
				SessionID: hit.ID,
				Date:      hit.Date,
				StartTime: hit.StartTime,
				EndTime:   hit.EndTime,
			}}
			return appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflictErr.Error())
		}
	}
	return nil
}

func (s *SessionService) verifyReferences(ctx context.Context, subjectID, instructorID, roomID string) (*models.Subject, *models.Room, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	instructor, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleInstructor {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "instructor_id does not reference an instructor")
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	return subject, room, nil
}

func (s *SessionService) verifySelectors(ctx context.Context, reqs []CohortSelectorRequest) ([]models.CohortSelector, error) {
	selectors := make([]models.CohortSelector, 0, len(reqs))
	for _, req := range reqs {
		if _, err := s.cohorts.FindProgram(ctx, req.ProgramID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
		}
		if req.LevelID != nil {
			if _, err := s.cohorts.FindLevel(ctx, *req.LevelID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "level not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load level")
			}
		}
		if req.GroupID != nil {
			group, err := s.cohorts.FindGroup(ctx, *req.GroupID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
			}
			if group.ProgramID != req.ProgramID {
				return nil, appErrors.Clone(appErrors.ErrValidation, "group does not belong to the selected program")
			}
			if req.LevelID != nil && group.LevelID != *req.LevelID {
				return nil, appErrors.Clone(appErrors.ErrValidation, "group does not belong to the selected level")
			}
		}
		selectors = append(selectors, models.CohortSelector{ProgramID: req.ProgramID, LevelID: req.LevelID, GroupID: req.GroupID})
	}
	return selectors, nil
}

// checkAvailability is advisory: a session outside the instructor's
// declared intervals is still accepted.
func (s *SessionService) checkAvailability(ctx context.Context, session models.Session) bool {
	if s.availability == nil {
		return false
	}
	date, err := time.Parse("2006-01-02", session.Date)
	if err != nil {
		return false
	}
	covered, err := s.availability.CoversInterval(ctx, session.InstructorID, int(date.Weekday()), session.StartTime, session.EndTime)
	if err != nil {
		s.logger.Warn("availability check failed", zap.Error(err))
		return false
	}
	if !covered {
		s.logger.Sugar().Infow("session outside declared availability",
			"instructor_id", session.InstructorID, "date", session.Date, "start", session.StartTime)
	}
	return !covered
}

// dispatch runs after the transaction committed: cached unread counters
// are dropped and the external delivery collaborator is invoked. Neither
// step can fail the already-committed schedule change.
func (s *SessionService) dispatch(ctx context.Context, kind models.NotificationKind, result *SessionResult, title, body string) {
	if s.metrics != nil {
		s.metrics.CountNotifications(string(kind), len(result.Recipients))
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUnread(ctx, result.Recipients)
	}
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Enqueue(delivery.Event{
		Kind:       kind,
		SessionID:  result.Session.ID,
		Title:      title,
		Body:       body,
		Recipients: result.Recipients,
	})
}

func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "administrator capability required")
	}
	return nil
}

func (s *SessionService) observeTx(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// classifyWriteError maps storage violations to domain errors. Exclusion
// violations come from the overlap guards when a racing submission slipped
// past the in-transaction check; the violated constraint's name tells the
// axis apart.
func (s *SessionService) classifyWriteError(err error) error {
	switch {
	case database.IsExclusionViolation(err):
		if s.metrics != nil {
			axis := models.ConflictAxisInstructor
			if strings.Contains(database.ConstraintName(err), "room") {
				axis = models.ConflictAxisRoom
			}
			s.metrics.CountConflict(string(axis))
		}
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "slot was booked by a concurrent submission")
	case database.IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status, "duplicate record")
	case database.IsForeignKeyViolation(err):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "referenced resource does not exist")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "storage failure")
	}
}

type normalizedSlot struct {
	date  string
	start string
	end   string
}

// normalizeSlot re-formats date and clock strings to their canonical
// zero-padded forms and enforces start < end.
func normalizeSlot(date, start, end string) (normalizedSlot, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return normalizedSlot{}, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	st, err := time.Parse("15:04", start)
	if err != nil {
		return normalizedSlot{}, appErrors.Clone(appErrors.ErrValidation, "start_time must be formatted HH:MM")
	}
	en, err := time.Parse("15:04", end)
	if err != nil {
		return normalizedSlot{}, appErrors.Clone(appErrors.ErrValidation, "end_time must be formatted HH:MM")
	}
	slot := normalizedSlot{
		date:  d.Format("2006-01-02"),
		start: st.Format("15:04"),
		end:   en.Format("15:04"),
	}
	if slot.start >= slot.end {
		return normalizedSlot{}, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return slot, nil
}
