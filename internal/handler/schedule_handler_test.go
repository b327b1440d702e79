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

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/models"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
)

type scheduleServiceMock struct {
	generateResp *dto.ScheduleResponse
	generateErr  error
	listResp     []dto.ScheduleSummaryResponse
	getResp      *dto.ScheduleResponse
	getErr       error
	publishResp  *models.Schedule
	publishErr   error
	deleteErr    error
	moveResp     *dto.MoveSessionResponse
	moveErr      error
	slotsResp    *dto.ValidSlotsResponse
	slotsErr     error
	lastGenerate dto.GenerateScheduleRequest
	lastQuery    dto.ScheduleListQuery
	lastSlots    dto.ValidSlotsQuery
	lastID       string
}

func (m *scheduleServiceMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error) {
	m.lastGenerate = req
	return m.generateResp, m.generateErr
}

func (m *scheduleServiceMock) List(ctx context.Context, query dto.ScheduleListQuery) ([]dto.ScheduleSummaryResponse, *models.Pagination, error) {
	m.lastQuery = query
	return m.listResp, nil, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	m.lastID = id
	return m.getResp, m.getErr
}

func (m *scheduleServiceMock) Publish(ctx context.Context, id string) (*models.Schedule, error) {
	m.lastID = id
	return m.publishResp, m.publishErr
}

func (m *scheduleServiceMock) Delete(ctx context.Context, id string) error {
	m.lastID = id
	return m.deleteErr
}

func (m *scheduleServiceMock) Move(ctx context.Context, scheduleID string, req dto.MoveSessionRequest) (*dto.MoveSessionResponse, error) {
	m.lastID = scheduleID
	return m.moveResp, m.moveErr
}

func (m *scheduleServiceMock) ValidSlots(ctx context.Context, scheduleID string, query dto.ValidSlotsQuery) (*dto.ValidSlotsResponse, error) {
	m.lastID = scheduleID
	m.lastSlots = query
	return m.slotsResp, m.slotsErr
}

func TestScheduleHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{
		generateResp: &dto.ScheduleResponse{
			Schedule: models.Schedule{ID: "sched-1", Status: models.ScheduleStatusDraft},
			Stats:    dto.ScheduleStatsResponse{Approach: "core-strict", PlacedSessions: 3, TotalSessions: 3, Complete: true},
		},
	}
	handler := NewScheduleHandler(mockSvc)

	payload, _ := json.Marshal(dto.GenerateScheduleRequest{RosterID: "7b8e1f64-3c2a-4d5e-9f01-2a3b4c5d6e7f", Name: "Week 1"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Week 1", mockSvc.lastGenerate.Name)
	assert.Contains(t, w.Body.String(), "core-strict")
}

func TestScheduleHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewBufferString(`{"rosterId":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules?status=draft&page=2&limit=5", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DRAFT", mockSvc.lastQuery.Status)
	assert.Equal(t, 2, mockSvc.lastQuery.Page)
	assert.Equal(t, 5, mockSvc.lastQuery.PageSize)
}

func TestScheduleHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", mockSvc.lastID)
}

func TestScheduleHandlerPublishConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{publishErr: appErrors.ErrSchedulePublished}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules/sched-1/publish", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Publish(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestScheduleHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/schedules/sched-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "sched-1", mockSvc.lastID)
}

func TestScheduleHandlerMoveRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{
		moveResp: &dto.MoveSessionResponse{
			Accepted:  false,
			Conflicts: []dto.ConflictResponse{{Kind: "TEACHER", Teacher: "Kaupa, Peter", Reason: "teacher Kaupa, Peter is already scheduled in this slot"}},
		},
	}
	handler := NewScheduleHandler(mockSvc)

	payload, _ := json.Marshal(dto.MoveSessionRequest{
		ClassID:       "MATH-7",
		CurrentDay:    "Monday",
		CurrentPeriod: 1,
		TargetDay:     "Tuesday",
		TargetPeriod:  2,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules/sched-1/moves", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Move(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accepted":false`)
	assert.Contains(t, w.Body.String(), "TEACHER")
}

func TestScheduleHandlerValidSlots(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{slotsResp: &dto.ValidSlotsResponse{}}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/sched-1/valid-slots?classId=MATH-7&sessionIndex=1&currentDay=Monday&currentPeriod=4", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.ValidSlots(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MATH-7", mockSvc.lastSlots.ClassID)
	assert.Equal(t, 1, mockSvc.lastSlots.SessionIndex)
	assert.Equal(t, "Monday", mockSvc.lastSlots.CurrentDay)
	assert.Equal(t, 4, mockSvc.lastSlots.CurrentPeriod)
}
