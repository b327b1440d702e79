package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/models"
	"github.com/veritas-edu/class-scheduler/internal/repository"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
	"github.com/veritas-edu/class-scheduler/pkg/jobs"
)

// ExportJobType labels export jobs on the shared queue.
const ExportJobType = "schedule_export"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListPending(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type scheduleFinder interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

// ExportJobService owns the background export lifecycle: enqueueing,
// status, signed downloads, restart recovery and file cleanup.
type ExportJobService struct {
	repo      exportJobStore
	schedules scheduleFinder
	queue     jobDispatcher
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportJobServiceConfig
}

// ExportJobServiceConfig governs recovery and cleanup.
type ExportJobServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// NewExportJobService constructs the job service.
func NewExportJobService(repo exportJobStore, schedules scheduleFinder, queue jobDispatcher, exporter *ExportService, validate *validator.Validate, logger *zap.Logger, cfg ExportJobServiceConfig) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportJobService{
		repo:      repo,
		schedules: schedules,
		queue:     queue,
		exporter:  exporter,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob persists an export job for the schedule and enqueues it.
func (s *ExportJobService) CreateJob(ctx context.Context, scheduleID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid export request")
	}
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load schedule")
	}

	job := &models.ExportJob{
		ScheduleID: scheduleID,
		Format:     models.ExportFormat(req.Format),
		Status:     models.ExportStatusPending,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
		status := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:      &status,
			Error:       &msg,
			CompletedAt: &now,
		})
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to enqueue export job")
	}

	s.logger.Info("export job enqueued",
		zap.String("job_id", job.ID),
		zap.String("schedule_id", scheduleID),
		zap.String("format", req.Format),
	)
	return s.jobResponse(job), nil
}

// GetJob exposes job status, carrying a fresh signed download URL once
// the file is ready.
func (s *ExportJobService) GetJob(ctx context.Context, id string) (*dto.ExportJobResponse, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "export job id is required")
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load export job")
	}
	return s.jobResponse(job), nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrDownloadForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load export job")
	}
	if job.FilePath == "" || job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrDownloadForbidden, "token does not match a stored export")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrDownloadForbidden, "export is not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays jobs left pending by an earlier process.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover pending export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue export job", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Info("recovered pending export jobs", zap.Int("count", len(pending)))
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		if len(expired) == 0 {
			break
		}
		for _, job := range expired {
			if job.FilePath == "" {
				continue
			}
			if err := s.exporter.Delete(job.FilePath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
			cleared := ""
			if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{FilePath: &cleared}); err != nil {
				// Stop rather than refetch the same page forever.
				s.logger.Sugar().Warnw("cleanup update failed", "job_id", job.ID, "error", err)
				return
			}
		}
		if len(expired) < 100 {
			break
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ExportJobService) jobResponse(job *models.ExportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{
		ID:         job.ID,
		ScheduleID: job.ScheduleID,
		Format:     job.Format,
		Status:     job.Status,
		Error:      job.Error,
	}
	if job.Status == models.ExportStatusFinished && job.FilePath != "" {
		token, _, err := s.exporter.SignToken(job.ID, job.FilePath)
		if err != nil {
			s.logger.Sugar().Warnw("failed to sign download token", "job_id", job.ID, "error", err)
		} else {
			resp.DownloadURL = s.exporter.DownloadURL(token)
		}
	}
	return resp
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ExportWorker bridges queue jobs to the export renderer.
type ExportWorker struct {
	repo       exportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes one queue job. Returning an error hands the job back
// to the queue's retry loop; the final attempt marks the row FAILED.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportStatusProcessing
	attempts := job.Attempt + 1
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Attempts: &attempts,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportStatusFailed
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:      &failed,
				Error:       &msg,
				CompletedAt: &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark export job failed", "job_id", job.ID, "error", updateErr)
			}
			w.metrics.RecordExport(string(record.Format), "failed")
		} else {
			pending := models.ExportStatusPending
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status: &pending,
				Error:  &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark export job pending", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}

	finished := models.ExportStatusFinished
	now := time.Now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:      &finished,
		FilePath:    &result.RelativePath,
		Error:       &clear,
		CompletedAt: &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark export job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.RecordExport(string(record.Format), "finished")
	w.logger.Info("export job finished",
		zap.String("job_id", job.ID),
		zap.String("schedule_id", record.ScheduleID),
		zap.String("format", string(record.Format)),
	)
	return nil
}
