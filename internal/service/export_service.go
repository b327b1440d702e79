package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritas-edu/class-scheduler/internal/engine"
	"github.com/veritas-edu/class-scheduler/internal/models"
	"github.com/veritas-edu/class-scheduler/pkg/colors"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
	"github.com/veritas-edu/class-scheduler/pkg/export"
	"github.com/veritas-edu/class-scheduler/pkg/storage"
)

type exportScheduleSource interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Sessions(ctx context.Context, scheduleID string) ([]models.ScheduleSession, error)
}

type exportClassSource interface {
	Classes(ctx context.Context, rosterID string) ([]models.RosterClass, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type icalRenderer interface {
	Render(calName string, events []export.Event, weekStart time.Time, weeks int) ([]byte, error)
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	APIPrefix     string
	ResultTTL     time.Duration
	CalendarWeeks int
}

// ExportFile is a rendered timetable handed to synchronous callers.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportResult captures a stored export produced by a background job.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService turns stored schedules into CSV, PDF, XLSX and iCal
// documents, both inline and through stored files with signed download
// links.
type ExportService struct {
	schedules exportScheduleSource
	rosters   exportClassSource
	files     fileStorage
	signer    *storage.SignedURLSigner
	csv       csvRenderer
	pdf       pdfRenderer
	xlsx      xlsxRenderer
	ical      icalRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportServiceConfig
}

// NewExportService constructs an ExportService backed by the real
// renderers. Tests swap individual renderer fields.
func NewExportService(schedules exportScheduleSource, rosters exportClassSource, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportServiceConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CalendarWeeks <= 0 {
		cfg.CalendarWeeks = 12
	}
	return &ExportService{
		schedules: schedules,
		rosters:   rosters,
		files:     files,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(),
		ical:      export.NewICalExporter(),
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Render produces the requested format in memory for an immediate
// download response.
func (s *ExportService) Render(ctx context.Context, scheduleID, format string) (*ExportFile, error) {
	f := models.ExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if !f.Valid() {
		return nil, appErrors.Clonef(appErrors.ErrUnsupportedFormat, "unsupported export format %q", format)
	}

	schedule, classes, sessions, err := s.loadTimetable(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	payload, err := s.renderTimetable(schedule, classes, sessions, f)
	if err != nil {
		s.metrics.RecordExport(string(f), "failed")
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render export")
	}

	s.metrics.RecordExport(string(f), "rendered")
	s.logger.Info("schedule exported",
		zap.String("schedule_id", schedule.ID),
		zap.String("format", string(f)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportFile{
		Filename:    s.buildFilename(schedule, f),
		ContentType: f.ContentType(),
		Data:        payload,
	}, nil
}

// Generate renders a job's format and stores the file, returning the
// signed download location. Called from the export worker.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if !job.Format.Valid() {
		return nil, appErrors.Clonef(appErrors.ErrUnsupportedFormat, "unsupported export format %q", job.Format)
	}

	schedule, classes, sessions, err := s.loadTimetable(ctx, job.ScheduleID)
	if err != nil {
		return nil, err
	}
	payload, err := s.renderTimetable(schedule, classes, sessions, job.Format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.files.Save(s.buildFilename(schedule, job.Format), payload)
	if err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, fmt.Errorf("sign download link: %w", err)
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.DownloadURL(token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// DownloadURL builds the API path serving the given download token.
func (s *ExportService) DownloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/download/%s", prefix, token)
}

// SignToken issues a download token for a stored file.
func (s *ExportService) SignToken(jobID, relPath string) (string, time.Time, error) {
	return s.signer.Generate(jobID, relPath)
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.files.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.files.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to the configured
// ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.files.CleanupOlderThan(ttl)
}

func (s *ExportService) loadTimetable(ctx context.Context, scheduleID string) (*models.Schedule, []models.RosterClass, []models.ScheduleSession, error) {
	if scheduleID == "" {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load schedule")
	}
	sessions, err := s.schedules.Sessions(ctx, schedule.ID)
	if err != nil {
		return nil, nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load schedule sessions")
	}
	classes, err := s.rosters.Classes(ctx, schedule.RosterID)
	if err != nil {
		return nil, nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load roster classes")
	}
	return schedule, classes, sessions, nil
}

func (s *ExportService) renderTimetable(schedule *models.Schedule, classes []models.RosterClass, sessions []models.ScheduleSession, format models.ExportFormat) ([]byte, error) {
	title := schedule.Name
	if title == "" {
		title = "Weekly timetable"
	}
	classIndex := make(map[string]models.RosterClass, len(classes))
	for _, class := range classes {
		classIndex[class.ClassID] = class
	}

	switch format {
	case models.ExportFormatCSV:
		return s.csv.Render(buildGridDataset(sessions, classIndex))
	case models.ExportFormatPDF:
		return s.pdf.Render(buildGridDataset(sessions, classIndex), title)
	case models.ExportFormatXLSX:
		return s.xlsx.Render(buildGridDataset(sessions, classIndex), title)
	case models.ExportFormatICS:
		events := buildCalendarEvents(schedule, sessions, classIndex)
		if len(events) == 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule has no placed sessions to export")
		}
		return s.ical.Render(title, events, nextMonday(time.Now()), s.cfg.CalendarWeeks)
	default:
		return nil, appErrors.Clonef(appErrors.ErrUnsupportedFormat, "unsupported export format %q", format)
	}
}

// buildGridDataset lays the week out with one row per period and one
// column per day. Cell text stacks class, teacher and room; CellFills
// carries each class's display colour for the styled renderers.
func buildGridDataset(sessions []models.ScheduleSession, classIndex map[string]models.RosterClass) export.Dataset {
	headers := make([]string, 0, len(engine.Weekdays)+1)
	headers = append(headers, "Period")
	for _, day := range engine.Weekdays {
		headers = append(headers, day.String())
	}

	classIDs := make([]string, 0, len(sessions))
	seen := make(map[string]bool, len(sessions))
	cells := make(map[string][]models.ScheduleSession)
	for _, row := range sessions {
		if !seen[row.ClassID] {
			seen[row.ClassID] = true
			classIDs = append(classIDs, row.ClassID)
		}
		key := cellKey(row.Day, row.Period)
		cells[key] = append(cells[key], row)
	}
	classColors := colors.Assign(classIDs)

	rows := make([]map[string]string, 0, int(engine.LastPeriod))
	fills := make(map[string]string)
	for period := engine.FirstPeriod; period <= engine.LastPeriod; period++ {
		label := strconv.Itoa(int(period))
		if period == engine.AssemblyPeriod {
			label += " (assembly)"
		}
		row := map[string]string{"Period": label}

		for _, day := range engine.Weekdays {
			entries := cells[cellKey(int(day), int(period))]
			if len(entries) == 0 {
				continue
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].ClassID < entries[j].ClassID })

			parts := make([]string, 0, len(entries))
			for _, entry := range entries {
				parts = append(parts, cellText(entry, classIndex))
			}
			row[day.String()] = strings.Join(parts, "\n\n")

			if pair, ok := classColors[entries[0].ClassID]; ok {
				fills[fmt.Sprintf("%s:%d", day.String(), int(period-engine.FirstPeriod))] = pair.Body
			}
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: headers, Rows: rows, CellFills: fills}
}

func cellKey(day, period int) string {
	return fmt.Sprintf("%d:%d", day, period)
}

func cellText(row models.ScheduleSession, classIndex map[string]models.RosterClass) string {
	lines := []string{row.ClassID}
	if class, ok := classIndex[row.ClassID]; ok && class.Teacher != "" {
		lines = append(lines, class.Teacher)
	}
	if label := engine.Room(row.Room).Label(); label != "" {
		lines = append(lines, label)
	}
	return strings.Join(lines, "\n")
}

func buildCalendarEvents(schedule *models.Schedule, sessions []models.ScheduleSession, classIndex map[string]models.RosterClass) []export.Event {
	events := make([]export.Event, 0, len(sessions))
	for _, row := range sessions {
		summary := row.ClassID
		description := ""
		if class, ok := classIndex[row.ClassID]; ok {
			if class.CourseCategory != "" {
				summary = fmt.Sprintf("%s (%s)", row.ClassID, class.CourseCategory)
			}
			if class.Teacher != "" {
				description = "Teacher: " + class.Teacher
			}
		}
		events = append(events, export.Event{
			UID:         fmt.Sprintf("%s-%s-%d@class-scheduler", schedule.ID, row.ClassID, row.SessionIndex),
			Summary:     summary,
			Location:    engine.Room(row.Room).Label(),
			Description: description,
			Weekday:     time.Weekday(row.Day),
			Period:      row.Period,
		})
	}
	return events
}

func (s *ExportService) buildFilename(schedule *models.Schedule, format models.ExportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	name := sanitizeFilename(schedule.Name)
	return fmt.Sprintf("schedule_%s_%s.%s", name, timestamp, format.Extension())
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "timetable"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// nextMonday returns midnight UTC of the Monday on or after t.
func nextMonday(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}
