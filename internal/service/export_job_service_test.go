package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/models"
	"github.com/veritas-edu/class-scheduler/internal/repository"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
	"github.com/veritas-edu/class-scheduler/pkg/jobs"
)

type exportJobRepoStub struct {
	jobs    map[string]*models.ExportJob
	order   []string
	created int
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: make(map[string]*models.ExportJob)}
}

func (r *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	r.created++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", r.created)
	}
	if job.Status == "" {
		job.Status = models.ExportStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	stored := *job
	r.jobs[job.ID] = &stored
	r.order = append(r.order, job.ID)
	return nil
}

func (r *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := *job
	return &found, nil
}

func (r *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.FilePath != nil {
		job.FilePath = *params.FilePath
	}
	if params.Error != nil {
		job.Error = *params.Error
	}
	if params.Attempts != nil {
		job.Attempts = *params.Attempts
	}
	if params.CompletedAt != nil {
		completed := *params.CompletedAt
		job.CompletedAt = &completed
	}
	return nil
}

func (r *exportJobRepoStub) ListPending(ctx context.Context, limit int) ([]models.ExportJob, error) {
	out := make([]models.ExportJob, 0)
	for _, id := range r.order {
		if job := r.jobs[id]; job.Status == models.ExportStatusPending {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	out := make([]models.ExportJob, 0)
	for _, id := range r.order {
		job := r.jobs[id]
		if job.Status == models.ExportStatusFinished && job.FilePath != "" && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type exportQueueStub struct {
	enqueued []jobs.Job
	fail     bool
}

func (q *exportQueueStub) Enqueue(job jobs.Job) error {
	if q.fail {
		return errors.New("queue stopped")
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type exportJobFixture struct {
	service *ExportJobService
	worker  *ExportWorker
	repo    *exportJobRepoStub
	queue   *exportQueueStub
	export  *exportFixture
}

func newExportJobFixture(t *testing.T) *exportJobFixture {
	t.Helper()
	base := newExportFixture(t)
	repo := newExportJobRepoStub()
	queue := &exportQueueStub{}
	cfg := ExportJobServiceConfig{ResultTTL: time.Hour, CleanupInterval: time.Minute}
	svc := NewExportJobService(repo, base.schedules, queue, base.service, nil, zap.NewNop(), cfg)
	worker := NewExportWorker(repo, base.service, NewMetricsService(), 3, zap.NewNop())
	return &exportJobFixture{service: svc, worker: worker, repo: repo, queue: queue, export: base}
}

func TestExportJobLifecycle(t *testing.T) {
	f := newExportJobFixture(t)

	resp, err := f.service.CreateJob(context.Background(), "sched-1", dto.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusPending, resp.Status)
	assert.Equal(t, "sched-1", resp.ScheduleID)
	require.Len(t, f.queue.enqueued, 1)
	assert.Equal(t, ExportJobType, f.queue.enqueued[0].Type)

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.enqueued[0]))
	stored := f.repo.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	assert.NotEmpty(t, stored.FilePath)
	assert.Equal(t, 1, stored.Attempts)
	assert.NotNil(t, stored.CompletedAt)
	assert.Empty(t, stored.Error)

	status, err := f.service.GetJob(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	require.NotEmpty(t, status.DownloadURL)
	assert.Contains(t, status.DownloadURL, "/api/v1/exports/download/")

	download, err := f.service.ResolveDownload(context.Background(), path.Base(status.DownloadURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Period,Monday")
}

func TestExportJobCreateValidation(t *testing.T) {
	f := newExportJobFixture(t)

	_, err := f.service.CreateJob(context.Background(), "", dto.CreateExportRequest{Format: "csv"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.service.CreateJob(context.Background(), "sched-1", dto.CreateExportRequest{Format: "docx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.service.CreateJob(context.Background(), "missing", dto.CreateExportRequest{Format: "csv"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assert.Empty(t, f.queue.enqueued)
}

func TestExportJobEnqueueFailureMarksJobFailed(t *testing.T) {
	f := newExportJobFixture(t)
	f.queue.fail = true

	_, err := f.service.CreateJob(context.Background(), "sched-1", dto.CreateExportRequest{Format: "pdf"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	require.Len(t, f.repo.order, 1)
	stored := f.repo.jobs[f.repo.order[0]]
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	assert.Equal(t, "failed to enqueue job", stored.Error)
	assert.NotNil(t, stored.CompletedAt)
}

func TestExportJobGetJobNotFound(t *testing.T) {
	f := newExportJobFixture(t)

	_, err := f.service.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type failingGenerator struct {
	err error
}

func (g failingGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return nil, g.err
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	f := newExportJobFixture(t)
	worker := NewExportWorker(f.repo, failingGenerator{err: errors.New("render broke")}, NewMetricsService(), 2, zap.NewNop())

	job := &models.ExportJob{ID: "job-9", ScheduleID: "sched-1", Format: models.ExportFormatCSV}
	require.NoError(t, f.repo.Create(context.Background(), job))

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-9", Attempt: 0})
	require.Error(t, err)
	stored := f.repo.jobs["job-9"]
	assert.Equal(t, models.ExportStatusPending, stored.Status, "early failures go back on the queue")
	assert.Equal(t, "render broke", stored.Error)
	assert.Equal(t, 1, stored.Attempts)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-9", Attempt: 2})
	require.Error(t, err)
	stored = f.repo.jobs["job-9"]
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
	assert.NotNil(t, stored.CompletedAt)
}

func TestExportJobResolveDownloadGuards(t *testing.T) {
	f := newExportJobFixture(t)

	_, err := f.service.ResolveDownload(context.Background(), "garbage")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDownloadForbidden.Code, appErrors.FromError(err).Code)

	job := &models.ExportJob{ID: "job-5", ScheduleID: "sched-1", Format: models.ExportFormatCSV, Status: models.ExportStatusProcessing, FilePath: "pending.csv"}
	require.NoError(t, f.repo.Create(context.Background(), job))

	token, _, err := f.export.service.SignToken("job-5", "pending.csv")
	require.NoError(t, err)
	_, err = f.service.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDownloadForbidden.Code, appErrors.FromError(err).Code, "unfinished exports are not served")

	token, _, err = f.export.service.SignToken("job-5", "other.csv")
	require.NoError(t, err)
	_, err = f.service.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDownloadForbidden.Code, appErrors.FromError(err).Code, "token path must match the stored file")

	token, _, err = f.export.service.SignToken("ghost", "pending.csv")
	require.NoError(t, err)
	_, err = f.service.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportJobRecoverPending(t *testing.T) {
	f := newExportJobFixture(t)

	require.NoError(t, f.repo.Create(context.Background(), &models.ExportJob{ScheduleID: "sched-1", Format: models.ExportFormatCSV}))
	require.NoError(t, f.repo.Create(context.Background(), &models.ExportJob{ScheduleID: "sched-1", Format: models.ExportFormatPDF}))
	done := time.Now().UTC()
	require.NoError(t, f.repo.Create(context.Background(), &models.ExportJob{ScheduleID: "sched-1", Format: models.ExportFormatICS, Status: models.ExportStatusFinished, FilePath: "done.ics", CompletedAt: &done}))

	f.service.RecoverPendingJobs(context.Background())
	assert.Len(t, f.queue.enqueued, 2)
}

func TestExportJobCleanupRemovesExpiredFiles(t *testing.T) {
	f := newExportJobFixture(t)

	oldPath, err := f.export.store.Save("old.csv", []byte("a,b\n"))
	require.NoError(t, err)
	newPath, err := f.export.store.Save("new.csv", []byte("c,d\n"))
	require.NoError(t, err)

	expired := time.Now().UTC().Add(-2 * time.Hour)
	recent := time.Now().UTC()
	require.NoError(t, f.repo.Create(context.Background(), &models.ExportJob{ID: "job-old", ScheduleID: "sched-1", Format: models.ExportFormatCSV, Status: models.ExportStatusFinished, FilePath: oldPath, CompletedAt: &expired}))
	require.NoError(t, f.repo.Create(context.Background(), &models.ExportJob{ID: "job-new", ScheduleID: "sched-1", Format: models.ExportFormatCSV, Status: models.ExportStatusFinished, FilePath: newPath, CompletedAt: &recent}))

	f.service.cleanupExpired(context.Background())

	_, err = os.Stat(f.export.store.Path(oldPath))
	assert.True(t, os.IsNotExist(err), "expired file should be deleted")
	_, err = os.Stat(f.export.store.Path(newPath))
	assert.NoError(t, err, "recent file stays")

	assert.Empty(t, f.repo.jobs["job-old"].FilePath)
	assert.Equal(t, newPath, f.repo.jobs["job-new"].FilePath)
}
