package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-adp/timetable-api/internal/middleware"
	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/internal/service"
	appErrors "github.com/campus-adp/timetable-api/pkg/errors"
	"github.com/campus-adp/timetable-api/pkg/response"
)

type sessionServiceMock struct {
	listResp      []models.Session
	listPage      *models.Pagination
	listErr       error
	lastFilter    models.SessionFilter
	getResp       *service.SessionResult
	getErr        error
	createResp    *service.SessionResult
	createErr     error
	createCalled  bool
	lastCreateReq service.CreateSessionRequest
	updateResp    *service.SessionResult
	updateErr     error
	cancelResp    *service.SessionResult
	cancelErr     error
	cohortResp    []models.Session
	cohortErr     error
}

func (m *sessionServiceMock) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, m.listPage, m.listErr
}

func (m *sessionServiceMock) Get(ctx context.Context, id string) (*service.SessionResult, error) {
	return m.getResp, m.getErr
}

func (m *sessionServiceMock) ListForCohort(ctx context.Context, selector models.CohortSelector, dateFrom, dateTo string) ([]models.Session, error) {
	return m.cohortResp, m.cohortErr
}

func (m *sessionServiceMock) Create(ctx context.Context, actor *models.JWTClaims, req service.CreateSessionRequest) (*service.SessionResult, error) {
	m.createCalled = true
	m.lastCreateReq = req
	return m.createResp, m.createErr
}

func (m *sessionServiceMock) Update(ctx context.Context, actor *models.JWTClaims, id string, req service.UpdateSessionRequest) (*service.SessionResult, error) {
	return m.updateResp, m.updateErr
}

func (m *sessionServiceMock) Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*service.SessionResult, error) {
	return m.cancelResp, m.cancelErr
}

func adminContext(t *testing.T, w *httptest.ResponseRecorder, method, target string, body []byte) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	return c
}

func TestSessionHandlerListParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{
		listResp: []models.Session{{ID: "sess-1"}},
		listPage: &models.Pagination{Page: 2, PageSize: 5, TotalCount: 11},
	}
	handler := NewSessionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodGet, "/sessions?instructorId=inst-1&dateFrom=2026-03-09&page=2&limit=5", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inst-1", mockSvc.lastFilter.InstructorID)
	assert.Equal(t, "2026-03-09", mockSvc.lastFilter.DateFrom)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 11, envelope.Pagination.TotalCount)
}

func TestSessionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{
		createResp: &service.SessionResult{Session: models.Session{ID: "sess-1"}},
	}
	handler := NewSessionHandler(mockSvc)

	payload, _ := json.Marshal(service.CreateSessionRequest{
		SubjectID:    "subj-1",
		InstructorID: "inst-1",
		RoomID:       "room-1",
		Date:         "2026-03-09",
		StartTime:    "10:00",
		EndTime:      "11:30",
	})
	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodPost, "/sessions", payload)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
	assert.Equal(t, "10:00", mockSvc.lastCreateReq.StartTime)
}

func TestSessionHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{}
	handler := NewSessionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodPost, "/sessions", []byte(`{"subject_id":`))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.createCalled)
}

func TestSessionHandlerCreateConflictExposesCollidingSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conflict := &models.ConflictError{Conflict: models.SessionConflict{
		Axis:      models.ConflictAxisRoom,
		SessionID: "sess-9",
		Date:      "2026-03-09",
		StartTime: "10:00",
		EndTime:   "11:00",
	}}
	mockSvc := &sessionServiceMock{
		createErr: appErrors.Wrap(conflict, appErrors.ErrConflict.Code, http.StatusConflict, "room is already booked"),
	}
	handler := NewSessionHandler(mockSvc)

	payload, _ := json.Marshal(service.CreateSessionRequest{
		SubjectID:    "subj-1",
		InstructorID: "inst-1",
		RoomID:       "room-1",
		Date:         "2026-03-09",
		StartTime:    "10:30",
		EndTime:      "11:30",
	})
	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodPost, "/sessions", payload)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrConflict.Code, envelope.Error.Code)
	require.Contains(t, envelope.Meta, "conflict")
	blocked, ok := envelope.Meta["conflict"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "room", blocked["axis"])
	assert.Equal(t, "sess-9", blocked["session_id"])
}

func TestSessionHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewSessionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodGet, "/sessions/sess-404", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-404"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandlerCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{
		cancelResp: &service.SessionResult{Session: models.Session{ID: "sess-1"}},
	}
	handler := NewSessionHandler(mockSvc)

	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodDelete, "/sessions/sess-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	handler.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
}
