package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/engine"
	"github.com/veritas-edu/class-scheduler/internal/models"
	"github.com/veritas-edu/class-scheduler/pkg/colors"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
	"github.com/veritas-edu/class-scheduler/pkg/roster"
)

type rosterRepository interface {
	Create(ctx context.Context, roster *models.Roster, classes []models.RosterClass) error
	FindByID(ctx context.Context, id string) (*models.Roster, error)
	List(ctx context.Context) ([]models.Roster, error)
	Classes(ctx context.Context, rosterID string) ([]models.RosterClass, error)
	UpdateClass(ctx context.Context, rosterID, classID string, selected *bool, roomOverride *string) error
	Delete(ctx context.Context, id string) error
}

// RosterService imports uploaded class lists and manages which classes
// take part in schedule generation.
type RosterService struct {
	repo       rosterRepository
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	maxClasses int
	cacheTTL   time.Duration
}

// NewRosterService wires roster dependencies. maxClasses caps accepted
// upload rows when positive.
func NewRosterService(repo rosterRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, maxClasses int, cacheTTL time.Duration) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &RosterService{
		repo:       repo,
		cache:      cache,
		validator:  validate,
		logger:     logger,
		maxClasses: maxClasses,
		cacheTTL:   cacheTTL,
	}
}

// Import parses an uploaded CSV class list and stores it as a new
// roster. Every class starts selected.
func (s *RosterService) Import(ctx context.Context, req dto.RosterImportRequest, filename string, file io.Reader) (*dto.RosterImportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid roster payload")
	}

	parsed, err := roster.ParseClassList(file, s.maxClasses)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrRosterParse, err.Error())
	}

	name := req.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if name == "" {
		name = fmt.Sprintf("Class list %s", time.Now().UTC().Format("2006-01-02"))
	}

	stored := &models.Roster{Name: name, SourceFilename: filepath.Base(filename)}
	classes := make([]models.RosterClass, 0, len(parsed))
	for _, class := range parsed {
		classes = append(classes, models.RosterClass{
			ClassID:        class.ClassID,
			Teacher:        class.Teacher,
			CourseCategory: class.CourseCategory,
			CreditUnits:    class.CreditUnits,
			Students:       models.StringList(class.Students),
			Selected:       true,
		})
	}
	if err := s.repo.Create(ctx, stored, classes); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to store roster")
	}

	s.cache.Invalidate(ctx, "rosters*")
	s.logger.Info("roster imported",
		zap.String("roster_id", stored.ID),
		zap.String("name", stored.Name),
		zap.Int("classes", len(classes)))

	return &dto.RosterImportResponse{
		RosterID:     stored.ID,
		Name:         stored.Name,
		ClassesFound: len(classes),
		Classes:      classSummaries(classes),
	}, nil
}

// Get returns one roster with its classes and display colors. An empty
// id resolves to the most recent roster.
func (s *RosterService) Get(ctx context.Context, id string) (*dto.RosterResponse, error) {
	if id == "" {
		latest, err := s.latest(ctx)
		if err != nil {
			return nil, err
		}
		id = latest
	}

	key := rosterKey(id)
	var cached dto.RosterResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	stored, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "roster not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load roster")
	}
	classes, err := s.repo.Classes(ctx, id)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load roster classes")
	}

	classIDs := make([]string, 0, len(classes))
	for _, class := range classes {
		classIDs = append(classIDs, class.ClassID)
	}
	resp := &dto.RosterResponse{
		Roster:  *stored,
		Classes: classSummaries(classes),
		Colors:  colors.Assign(classIDs),
	}
	s.cache.Set(ctx, key, resp, s.cacheTTL)
	return resp, nil
}

// List returns stored rosters, newest first.
func (s *RosterService) List(ctx context.Context) ([]models.Roster, error) {
	rosters, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list rosters")
	}
	return rosters, nil
}

// UpdateClass flips selection or assigns a manual room for one class.
func (s *RosterService) UpdateClass(ctx context.Context, rosterID, classID string, req dto.UpdateClassRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid class update payload")
	}
	if req.Selected == nil && req.RoomOverride == nil {
		return appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	if req.RoomOverride != nil && *req.RoomOverride != "" {
		if _, err := engine.ParseRoom(*req.RoomOverride); err != nil {
			return appErrors.Clonef(appErrors.ErrValidation, "unknown room %q", *req.RoomOverride)
		}
	}

	if err := s.repo.UpdateClass(ctx, rosterID, classID, req.Selected, req.RoomOverride); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found in roster")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update class")
	}
	s.cache.Invalidate(ctx, rosterKey(rosterID)+"*")
	return nil
}

// Delete removes a roster together with its schedules.
func (s *RosterService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "roster not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to delete roster")
	}
	s.cache.Invalidate(ctx, "rosters*")
	s.cache.Invalidate(ctx, "schedules:*")
	return nil
}

func (s *RosterService) latest(ctx context.Context) (string, error) {
	rosters, err := s.repo.List(ctx)
	if err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list rosters")
	}
	if len(rosters) == 0 {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no rosters imported yet")
	}
	return rosters[0].ID, nil
}

func rosterKey(id string) string {
	return "rosters:" + id
}

func classSummaries(classes []models.RosterClass) []dto.RosterClassSummary {
	summaries := make([]dto.RosterClassSummary, 0, len(classes))
	for _, class := range classes {
		summaries = append(summaries, dto.RosterClassSummary{
			ClassID:        class.ClassID,
			Teacher:        class.Teacher,
			CourseCategory: class.CourseCategory,
			CreditUnits:    class.CreditUnits,
			StudentCount:   class.Enrollment(),
			Selected:       class.Selected,
			RoomOverride:   class.RoomOverride,
		})
	}
	return summaries
}
