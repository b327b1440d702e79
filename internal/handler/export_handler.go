package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/service"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
	"github.com/veritas-edu/class-scheduler/pkg/response"
)

type exportRenderService interface {
	Render(ctx context.Context, scheduleID, format string) (*service.ExportFile, error)
}

type exportJobManager interface {
	CreateJob(ctx context.Context, scheduleID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error)
	GetJob(ctx context.Context, id string) (*dto.ExportJobResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler serves synchronous timetable downloads and export jobs.
type ExportHandler struct {
	exports exportRenderService
	jobs    exportJobManager
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportRenderService, jobs exportJobManager) *ExportHandler {
	return &ExportHandler{exports: exports, jobs: jobs}
}

// Download godoc
// @Summary Download a schedule in the requested format
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Schedule ID"
// @Param format query string false "csv, pdf, xlsx or ics (default csv)"
// @Success 200 {file} binary
// @Router /schedules/{id}/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	file, err := h.exports.Render(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// CreateJob godoc
// @Summary Enqueue a background export of a schedule
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.CreateExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /schedules/{id}/exports [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid export payload"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// JobStatus godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) JobStatus(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// DownloadByToken godoc
// @Summary Download a finished export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download/{token} [get]
func (h *ExportHandler) DownloadByToken(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck
	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to read export file"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.Format.ContentType(), download.File, nil)
}
