package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/models"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
	"github.com/veritas-edu/class-scheduler/pkg/response"
)

type rosterService interface {
	Import(ctx context.Context, req dto.RosterImportRequest, filename string, file io.Reader) (*dto.RosterImportResponse, error)
	Get(ctx context.Context, id string) (*dto.RosterResponse, error)
	List(ctx context.Context) ([]models.Roster, error)
	UpdateClass(ctx context.Context, rosterID, classID string, req dto.UpdateClassRequest) error
	Delete(ctx context.Context, id string) error
}

// RosterHandler manages class list uploads and roster maintenance.
type RosterHandler struct {
	service        rosterService
	maxUploadBytes int64
}

// NewRosterHandler constructs the handler. maxUploadBytes caps accepted
// uploads when positive.
func NewRosterHandler(service rosterService, maxUploadBytes int64) *RosterHandler {
	return &RosterHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Import godoc
// @Summary Import a class list CSV
// @Tags Rosters
// @Accept multipart/form-data
// @Produce json
// @Param name formData string false "Roster name (defaults to the filename)"
// @Param file formData file true "Class list CSV"
// @Success 201 {object} response.Envelope
// @Router /roster/import [post]
func (h *RosterHandler) Import(c *gin.Context) {
	var req dto.RosterImportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid roster payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		response.Error(c, appErrors.Clonef(appErrors.ErrValidation, "file exceeds the %d byte upload limit", h.maxUploadBytes))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open upload"))
		return
	}
	defer src.Close()

	result, err := h.service.Import(c.Request.Context(), req, fileHeader.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Classes godoc
// @Summary List roster classes with display colors
// @Tags Rosters
// @Produce json
// @Param rosterId query string false "Roster ID (defaults to the most recent)"
// @Success 200 {object} response.Envelope
// @Router /roster/classes [get]
func (h *RosterHandler) Classes(c *gin.Context) {
	roster, err := h.service.Get(c.Request.Context(), c.Query("rosterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// List godoc
// @Summary List stored rosters
// @Tags Rosters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rosters [get]
func (h *RosterHandler) List(c *gin.Context) {
	rosters, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rosters, nil)
}

// UpdateClass godoc
// @Summary Update selection or manual room of a roster class
// @Tags Rosters
// @Accept json
// @Produce json
// @Param id path string true "Roster ID"
// @Param classId path string true "Class ID"
// @Param payload body dto.UpdateClassRequest true "Class update"
// @Success 204
// @Router /rosters/{id}/classes/{classId} [patch]
func (h *RosterHandler) UpdateClass(c *gin.Context) {
	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload"))
		return
	}
	if err := h.service.UpdateClass(c.Request.Context(), c.Param("id"), c.Param("classId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a roster
// @Tags Rosters
// @Produce json
// @Param id path string true "Roster ID"
// @Success 204
// @Router /rosters/{id} [delete]
func (h *RosterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
