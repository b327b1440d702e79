package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/models"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
	"github.com/veritas-edu/class-scheduler/pkg/response"
)

type scheduleService interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error)
	List(ctx context.Context, query dto.ScheduleListQuery) ([]dto.ScheduleSummaryResponse, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	Publish(ctx context.Context, id string) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, scheduleID string, req dto.MoveSessionRequest) (*dto.MoveSessionResponse, error)
	ValidSlots(ctx context.Context, scheduleID string, query dto.ValidSlotsQuery) (*dto.ValidSlotsResponse, error)
}

// ScheduleHandler manages schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Generate godoc
// @Summary Generate a timetable from roster classes
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List stored schedules
// @Tags Schedules
// @Produce json
// @Param rosterId query string false "Filter by roster"
// @Param status query string false "Filter by status (DRAFT or PUBLISHED)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var query dto.ScheduleListQuery
	query.RosterID = c.Query("rosterId")
	query.Status = strings.ToUpper(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = limit
	}

	schedules, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get a schedule with its full grid
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Publish godoc
// @Summary Publish a draft schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/publish [post]
func (h *ScheduleHandler) Publish(c *gin.Context) {
	schedule, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete a draft schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Move godoc
// @Summary Move a placed session to another slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.MoveSessionRequest true "Move payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/moves [post]
func (h *ScheduleHandler) Move(c *gin.Context) {
	var req dto.MoveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	result, err := h.service.Move(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ValidSlots godoc
// @Summary Slot validity map for one session
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param classId query string true "Class ID"
// @Param sessionIndex query int false "Session index"
// @Param currentDay query string false "Current day of the session"
// @Param currentPeriod query int false "Current period of the session"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/valid-slots [get]
func (h *ScheduleHandler) ValidSlots(c *gin.Context) {
	var query dto.ValidSlotsQuery
	query.ClassID = c.Query("classId")
	if idx, err := strconv.Atoi(c.DefaultQuery("sessionIndex", "0")); err == nil {
		query.SessionIndex = idx
	}
	query.CurrentDay = c.Query("currentDay")
	if period, err := strconv.Atoi(c.DefaultQuery("currentPeriod", "0")); err == nil {
		query.CurrentPeriod = period
	}

	result, err := h.service.ValidSlots(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
