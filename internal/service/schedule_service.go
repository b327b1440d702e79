package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/veritas-edu/class-scheduler/internal/dto"
	"github.com/veritas-edu/class-scheduler/internal/engine"
	"github.com/veritas-edu/class-scheduler/internal/models"
	"github.com/veritas-edu/class-scheduler/pkg/colors"
	appErrors "github.com/veritas-edu/class-scheduler/pkg/errors"
)

type scheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule, sessions []models.ScheduleSession, unplaced []models.UnplacedClass, rejected []models.RejectedPin) error
	ReplaceSessions(ctx context.Context, scheduleID string, sessions []models.ScheduleSession) error
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Sessions(ctx context.Context, scheduleID string) ([]models.ScheduleSession, error)
	Unplaced(ctx context.Context, scheduleID string) ([]models.UnplacedClass, error)
	RejectedPins(ctx context.Context, scheduleID string) ([]models.RejectedPin, error)
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

type rosterClassSource interface {
	FindByID(ctx context.Context, id string) (*models.Roster, error)
	Classes(ctx context.Context, rosterID string) ([]models.RosterClass, error)
	SelectedClasses(ctx context.Context, rosterID string) ([]models.RosterClass, error)
}

// ScheduleServiceConfig governs generator behaviour. AllowExtended
// unlocks the extended period for every run; requests can also opt in
// per run.
type ScheduleServiceConfig struct {
	AllowExtended       bool
	ChapelCapacity      int
	MaxUnplacedFraction float64
	GenerateTimeout     time.Duration
	CacheTTL            time.Duration
}

// ScheduleService runs the placement engine over stored rosters,
// persists the resulting timetables, and serves interactive moves
// against the live grid of each schedule.
type ScheduleService struct {
	schedules     scheduleRepository
	rosters       rosterClassSource
	scheduler     *engine.Scheduler
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	allowExtended bool
	timeout       time.Duration
	cacheTTL      time.Duration
	live          *liveGrids
}

// NewScheduleService wires schedule dependencies.
func NewScheduleService(
	schedules scheduleRepository,
	rosters rosterClassSource,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleServiceConfig,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &ScheduleService{
		schedules: schedules,
		rosters:   rosters,
		scheduler: engine.NewScheduler(engine.Config{
			ChapelCapacity:      cfg.ChapelCapacity,
			MaxUnplacedFraction: cfg.MaxUnplacedFraction,
		}),
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		allowExtended: cfg.AllowExtended,
		timeout:       cfg.GenerateTimeout,
		cacheTTL:      cfg.CacheTTL,
		live:          newLiveGrids(),
	}
}

// Generate runs the placement engine over the selected classes of a
// roster, stores the result as a draft schedule and returns the full
// grid with diagnostics. Partial results inside the unplaced tolerance
// are stored and returned as successes.
func (s *ScheduleService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid schedule generation payload")
	}

	roster, err := s.rosters.FindByID(ctx, req.RosterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "roster not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load roster")
	}

	classRows, err := s.rosters.SelectedClasses(ctx, req.RosterID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load roster classes")
	}
	classRows, err = narrowClasses(classRows, req.ClassIDs)
	if err != nil {
		return nil, err
	}
	if len(classRows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "roster has no selected classes to schedule")
	}

	classes := make([]*engine.ClassSection, 0, len(classRows))
	teachers := make(map[string]string, len(classRows))
	for i := range classRows {
		row := classRows[i]
		classes = append(classes, &engine.ClassSection{
			ID:             row.ClassID,
			Teacher:        row.Teacher,
			CourseCategory: row.CourseCategory,
			CreditUnits:    row.CreditUnits,
			Students:       row.Students,
		})
		teachers[row.ClassID] = row.Teacher
	}

	constraints, pinSet, err := buildConstraints(req.Pins, teachers)
	if err != nil {
		return nil, err
	}
	overrides, overrideSet, err := buildRoomOverrides(req.RoomOverrides, classRows)
	if err != nil {
		return nil, err
	}

	allowExtended := req.AllowExtendedPeriods || s.allowExtended

	start := time.Now()
	solution, err := s.runScheduler(ctx, engine.Request{
		Classes:              classes,
		Constraints:          constraints,
		RoomOverrides:        overrides,
		AllowExtendedPeriods: allowExtended,
	})
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordScheduleRun("none", "failed", elapsed)
		var unitsErr *engine.InvalidCreditUnitsError
		var incompleteErr *engine.IncompleteScheduleError
		switch {
		case errors.As(err, &unitsErr):
			return nil, appErrors.Clone(appErrors.ErrInvalidCreditUnits, unitsErr.Error())
		case errors.As(err, &incompleteErr):
			return nil, appErrors.WrapAs(err, appErrors.ErrScheduleIncomplete,
				fmt.Sprintf("placed %d of %d sessions; %d classes could not be scheduled", incompleteErr.PlacedSessions, incompleteErr.TotalSessions, len(incompleteErr.Unplaced)))
		case errors.Is(err, context.DeadlineExceeded):
			return nil, appErrors.Clone(appErrors.ErrInternal, "schedule generation timed out")
		default:
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "schedule generation failed")
		}
	}
	outcome := "partial"
	if solution.Complete() {
		outcome = "complete"
	}
	s.metrics.RecordScheduleRun(solution.Approach, outcome, elapsed)
	s.logger.Info("schedule generated",
		zap.String("roster_id", req.RosterID),
		zap.String("approach", solution.Approach),
		zap.Int("score", solution.Score),
		zap.Int("placed", solution.PlacedSessions),
		zap.Int("total", solution.TotalSessions),
		zap.Duration("elapsed", elapsed))

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", roster.Name, time.Now().UTC().Format("2006-01-02 15:04"))
	}
	schedule := &models.Schedule{
		RosterID:       req.RosterID,
		Name:           name,
		Status:         models.ScheduleStatusDraft,
		Approach:       solution.Approach,
		Score:          solution.Score,
		AllowExtended:  allowExtended,
		PlacedSessions: solution.PlacedSessions,
		TotalSessions:  solution.TotalSessions,
		Constraints:    pinSet,
		RoomOverrides:  overrideSet,
	}
	sessionRows := sessionRowsFrom(solution.Timetable)
	unplacedRows := unplacedRowsFrom(solution.Unplaced)
	rejectedRows := rejectedRowsFrom(solution.RejectedPins)

	if err := s.schedules.Create(ctx, schedule, sessionRows, unplacedRows, rejectedRows); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to persist schedule")
	}

	s.live.put(schedule.ID, solution.Timetable)
	s.invalidateLists(ctx)

	resp := buildScheduleResponse(schedule, sessionRows, unplacedRows, rejectedRows, teachers)
	s.cache.Set(ctx, scheduleKey(schedule.ID), resp, s.cacheTTL)
	return resp, nil
}

// Get returns a stored schedule with its full grid and diagnostics.
func (s *ScheduleService) Get(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	var cached dto.ScheduleResponse
	if hit, _ := s.cache.Get(ctx, scheduleKey(id), &cached); hit {
		return &cached, nil
	}

	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	sessions, err := s.schedules.Sessions(ctx, id)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load schedule sessions")
	}
	unplaced, err := s.schedules.Unplaced(ctx, id)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load unplaced diagnostics")
	}
	rejected, err := s.schedules.RejectedPins(ctx, id)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load rejected pins")
	}
	teachers, err := s.teacherIndex(ctx, schedule.RosterID)
	if err != nil {
		return nil, err
	}

	resp := buildScheduleResponse(schedule, sessions, unplaced, rejected, teachers)
	s.cache.Set(ctx, scheduleKey(id), resp, s.cacheTTL)
	return resp, nil
}

// List returns stored schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleListQuery) ([]dto.ScheduleSummaryResponse, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid schedule listing query")
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	schedules, total, err := s.schedules.List(ctx, models.ScheduleFilter{
		RosterID: query.RosterID,
		Status:   models.ScheduleStatus(query.Status),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list schedules")
	}

	summaries := make([]dto.ScheduleSummaryResponse, 0, len(schedules))
	for i := range schedules {
		schedule := schedules[i]
		summaries = append(summaries, dto.ScheduleSummaryResponse{
			Schedule: schedule,
			Stats:    statsFor(&schedule, schedule.PlacedSessions == schedule.TotalSessions),
		})
	}
	return summaries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Publish transitions a draft schedule to PUBLISHED. Published grids are
// frozen: the live grid entry is dropped and further moves refused.
func (s *ScheduleService) Publish(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrSchedulePublished, "schedule is already published")
	}

	now := time.Now().UTC()
	if err := s.schedules.UpdateStatus(ctx, id, models.ScheduleStatusPublished, &now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to publish schedule")
	}
	schedule.Status = models.ScheduleStatusPublished
	schedule.PublishedAt = &now
	schedule.UpdatedAt = now

	s.live.drop(id)
	s.invalidateSchedule(ctx, id)
	s.logger.Info("schedule published", zap.String("schedule_id", id))
	return schedule, nil
}

// Delete removes a draft schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return err
	}
	if schedule.Status == models.ScheduleStatusPublished {
		return appErrors.Clone(appErrors.ErrConflict, "published schedules cannot be deleted")
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to delete schedule")
	}
	s.live.drop(id)
	s.invalidateSchedule(ctx, id)
	return nil
}

// Move relocates one session on the live grid of a draft schedule. A
// rejected move returns accepted=false with the blocking conflicts; only
// lookup failures surface as errors.
func (s *ScheduleService) Move(ctx context.Context, scheduleID string, req dto.MoveSessionRequest) (*dto.MoveSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid move payload")
	}
	schedule, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrSchedulePublished, "published schedules cannot be modified")
	}

	currentDay, err := engine.ParseDay(req.CurrentDay)
	if err != nil {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "invalid current day %q", req.CurrentDay)
	}
	targetDay, err := engine.ParseDay(req.TargetDay)
	if err != nil {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "invalid target day %q", req.TargetDay)
	}
	var room engine.Room
	if req.RequestedRoom != "" {
		room, err = engine.ParseRoom(req.RequestedRoom)
		if err != nil {
			return nil, appErrors.Clonef(appErrors.ErrValidation, "unknown room %q", req.RequestedRoom)
		}
	}

	entry := s.live.get(scheduleID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := s.ensureLive(ctx, entry, schedule); err != nil {
		return nil, err
	}

	outcome, err := entry.tt.ApplyMove(engine.MoveRequest{
		ClassID:      req.ClassID,
		SessionIndex: req.SessionIndex,
		From:         engine.Slot{Day: currentDay, Period: engine.Period(req.CurrentPeriod)},
		To:           engine.Slot{Day: targetDay, Period: engine.Period(req.TargetPeriod)},
		Room:         room,
	})
	if err != nil {
		return nil, mapMoveError(err)
	}
	s.metrics.RecordMove(outcome.Accepted)
	if !outcome.Accepted {
		return &dto.MoveSessionResponse{Accepted: false, Conflicts: conflictResponsesFromEngine(outcome.Conflicts)}, nil
	}

	if err := s.schedules.ReplaceSessions(ctx, scheduleID, sessionRowsFrom(entry.tt)); err != nil {
		// The in-memory grid moved but the store did not: drop the live
		// entry so the next operation rebuilds from the persisted rows.
		entry.tt = nil
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to persist moved sessions")
	}
	s.invalidateSchedule(ctx, scheduleID)

	return &dto.MoveSessionResponse{Accepted: true, ResolvedRoom: string(outcome.ResolvedRoom)}, nil
}

// ValidSlots returns the validity map of one session over the whole
// grid, without mutating anything.
func (s *ScheduleService) ValidSlots(ctx context.Context, scheduleID string, query dto.ValidSlotsQuery) (*dto.ValidSlotsResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid valid-slots query")
	}
	if (query.CurrentDay == "") != (query.CurrentPeriod == 0) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "currentDay and currentPeriod must be provided together")
	}
	schedule, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	var from engine.Slot
	if query.CurrentDay != "" {
		day, err := engine.ParseDay(query.CurrentDay)
		if err != nil {
			return nil, appErrors.Clonef(appErrors.ErrValidation, "invalid current day %q", query.CurrentDay)
		}
		from = engine.Slot{Day: day, Period: engine.Period(query.CurrentPeriod)}
	}

	key := validSlotsKey(scheduleID, query)
	var cached dto.ValidSlotsResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	entry := s.live.get(scheduleID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := s.ensureLive(ctx, entry, schedule); err != nil {
		return nil, err
	}

	validities, err := entry.tt.ValidSlots(query.ClassID, query.SessionIndex, from)
	if err != nil {
		return nil, mapMoveError(err)
	}

	resp := &dto.ValidSlotsResponse{Slots: make([]dto.SlotValidityResponse, 0, len(validities))}
	for _, validity := range validities {
		resp.Slots = append(resp.Slots, dto.SlotValidityResponse{
			Day:       validity.Slot.Day.String(),
			Period:    int(validity.Slot.Period),
			Valid:     validity.Valid,
			Conflicts: conflictResponsesFromEngine(validity.Conflicts),
		})
	}
	s.cache.Set(ctx, key, resp, s.cacheTTL)
	return resp, nil
}

// liveGrids holds the in-memory timetable of each schedule under edit.
// Every entry serializes access through its own mutex so concurrent
// moves against one schedule re-validate in sequence.
type liveGrids struct {
	mu    sync.Mutex
	items map[string]*liveGrid
}

type liveGrid struct {
	mu sync.Mutex
	tt *engine.Timetable
}

func newLiveGrids() *liveGrids {
	return &liveGrids{items: make(map[string]*liveGrid)}
}

func (l *liveGrids) get(id string) *liveGrid {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.items[id]
	if !ok {
		entry = &liveGrid{}
		l.items[id] = entry
	}
	return entry
}

func (l *liveGrids) put(id string, tt *engine.Timetable) {
	entry := l.get(id)
	entry.mu.Lock()
	entry.tt = tt
	entry.mu.Unlock()
}

func (l *liveGrids) drop(id string) {
	l.mu.Lock()
	delete(l.items, id)
	l.mu.Unlock()
}

// ensureLive rebuilds the timetable from the persisted rows when the
// registry has no entry yet. Callers hold entry.mu.
func (s *ScheduleService) ensureLive(ctx context.Context, entry *liveGrid, schedule *models.Schedule) error {
	if entry.tt != nil {
		return nil
	}
	rows, err := s.schedules.Sessions(ctx, schedule.ID)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load schedule sessions")
	}
	classRows, err := s.rosters.Classes(ctx, schedule.RosterID)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load roster classes")
	}
	classes := make(map[string]*engine.ClassSection, len(classRows))
	for i := range classRows {
		row := classRows[i]
		classes[row.ClassID] = &engine.ClassSection{
			ID:             row.ClassID,
			Teacher:        row.Teacher,
			CourseCategory: row.CourseCategory,
			CreditUnits:    row.CreditUnits,
			Students:       row.Students,
		}
	}

	sessions := make([]*engine.Session, 0, len(rows))
	for _, row := range rows {
		class, ok := classes[row.ClassID]
		if !ok {
			return appErrors.Clonef(appErrors.ErrInternal, "schedule references unknown class %s", row.ClassID)
		}
		state := engine.SessionAutoPlaced
		if row.State == models.SessionStatePinned {
			state = engine.SessionPinned
		}
		sessions = append(sessions, &engine.Session{
			Class:  class,
			Index:  row.SessionIndex,
			Day:    engine.Day(row.Day),
			Period: engine.Period(row.Period),
			Room:   engine.Room(row.Room),
			State:  state,
		})
	}
	entry.tt = engine.RestoreTimetable(sessions)
	return nil
}

func (s *ScheduleService) runScheduler(ctx context.Context, req engine.Request) (*engine.Solution, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	type result struct {
		solution *engine.Solution
		err      error
	}
	done := make(chan result, 1)
	go func() {
		solution, err := s.scheduler.Schedule(req)
		done <- result{solution: solution, err: err}
	}()
	select {
	case r := <-done:
		return r.solution, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ScheduleService) loadSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load schedule")
	}
	return schedule, nil
}

func (s *ScheduleService) teacherIndex(ctx context.Context, rosterID string) (map[string]string, error) {
	classRows, err := s.rosters.Classes(ctx, rosterID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load roster classes")
	}
	teachers := make(map[string]string, len(classRows))
	for _, row := range classRows {
		teachers[row.ClassID] = row.Teacher
	}
	return teachers, nil
}

func (s *ScheduleService) invalidateSchedule(ctx context.Context, id string) {
	s.cache.Invalidate(ctx, scheduleKey(id)+"*")
	s.invalidateLists(ctx)
}

func (s *ScheduleService) invalidateLists(ctx context.Context) {
	s.cache.Invalidate(ctx, "schedules:list*")
}

func scheduleKey(id string) string {
	return "schedules:" + id
}

func validSlotsKey(scheduleID string, query dto.ValidSlotsQuery) string {
	return fmt.Sprintf("schedules:%s:valid-slots:%s:%d:%s:%d", scheduleID, query.ClassID, query.SessionIndex, query.CurrentDay, query.CurrentPeriod)
}

func narrowClasses(rows []models.RosterClass, classIDs []string) ([]models.RosterClass, error) {
	if len(classIDs) == 0 {
		return rows, nil
	}
	byID := make(map[string]models.RosterClass, len(rows))
	for _, row := range rows {
		byID[row.ClassID] = row
	}
	narrowed := make([]models.RosterClass, 0, len(classIDs))
	seen := make(map[string]bool, len(classIDs))
	for _, id := range classIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		row, ok := byID[id]
		if !ok {
			return nil, appErrors.Clonef(appErrors.ErrValidation, "class %s is not a selected class of this roster", id)
		}
		narrowed = append(narrowed, row)
	}
	return narrowed, nil
}

func buildConstraints(pins []dto.SessionPinRequest, known map[string]string) (map[string]map[int]engine.SessionConstraint, models.ConstraintSet, error) {
	if len(pins) == 0 {
		return nil, nil, nil
	}
	constraints := make(map[string]map[int]engine.SessionConstraint)
	pinSet := make(models.ConstraintSet)
	for _, pin := range pins {
		if _, ok := known[pin.ClassID]; !ok {
			return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "pin references unknown class %s", pin.ClassID)
		}

		hasDay := pin.Day != ""
		hasPeriod := pin.Period != 0
		hasRoom := pin.Room != ""

		var day engine.Day
		if hasDay {
			parsed, err := engine.ParseDay(pin.Day)
			if err != nil {
				return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "pin for %s: invalid day %q", pin.ClassID, pin.Day)
			}
			day = parsed
		}
		var room engine.Room
		if hasRoom {
			parsed, err := engine.ParseRoom(pin.Room)
			if err != nil {
				return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "pin for %s: unknown room %q", pin.ClassID, pin.Room)
			}
			room = parsed
		}
		period := engine.Period(pin.Period)

		var constraint engine.SessionConstraint
		switch {
		case hasDay && hasPeriod && hasRoom:
			constraint = engine.Exact(day, period, room)
		case hasDay && hasPeriod:
			constraint = engine.At(day, period)
		case hasRoom && (hasDay || hasPeriod):
			return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "pin for %s: a pinned room needs both day and period or neither", pin.ClassID)
		case hasDay:
			constraint = engine.OnDay(day)
		case hasPeriod:
			constraint = engine.AtPeriod(period)
		case hasRoom:
			constraint = engine.InRoom(room)
		default:
			continue
		}
		if err := constraint.Validate(); err != nil {
			return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "pin for %s: %v", pin.ClassID, err)
		}

		if constraints[pin.ClassID] == nil {
			constraints[pin.ClassID] = make(map[int]engine.SessionConstraint)
			pinSet[pin.ClassID] = make(map[int]models.SessionPin)
		}
		if _, dup := constraints[pin.ClassID][pin.SessionIndex]; dup {
			return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "duplicate pin for class %s session %d", pin.ClassID, pin.SessionIndex)
		}
		constraints[pin.ClassID][pin.SessionIndex] = constraint
		pinSet[pin.ClassID][pin.SessionIndex] = models.SessionPin{
			Kind:   constraint.Kind.String(),
			Day:    int(constraint.Day),
			Period: int(constraint.Period),
			Room:   string(constraint.Room),
		}
	}
	if len(constraints) == 0 {
		return nil, nil, nil
	}
	return constraints, pinSet, nil
}

func buildRoomOverrides(requested map[string]string, classRows []models.RosterClass) (map[string]engine.Room, models.RoomOverrides, error) {
	overrides := make(map[string]engine.Room)
	known := make(map[string]bool, len(classRows))
	for _, row := range classRows {
		known[row.ClassID] = true
		if row.RoomOverride == "" {
			continue
		}
		room, err := engine.ParseRoom(row.RoomOverride)
		if err != nil {
			return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "class %s has an unknown room override %q", row.ClassID, row.RoomOverride)
		}
		overrides[row.ClassID] = room
	}
	for classID, roomName := range requested {
		if roomName == "" {
			continue
		}
		if !known[classID] {
			return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "room override references unknown class %s", classID)
		}
		room, err := engine.ParseRoom(roomName)
		if err != nil {
			return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "unknown room %q for class %s", roomName, classID)
		}
		overrides[classID] = room
	}
	if len(overrides) == 0 {
		return nil, nil, nil
	}
	overrideSet := make(models.RoomOverrides, len(overrides))
	for classID, room := range overrides {
		overrideSet[classID] = string(room)
	}
	return overrides, overrideSet, nil
}

func mapMoveError(err error) error {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		return appErrors.Clone(appErrors.ErrSessionNotFound, err.Error())
	case errors.Is(err, engine.ErrStaleSession):
		return appErrors.Clone(appErrors.ErrStaleSession, err.Error())
	default:
		return appErrors.WrapAs(err, appErrors.ErrInternal, "move failed")
	}
}

func sessionRowsFrom(tt *engine.Timetable) []models.ScheduleSession {
	sessions := tt.Grid().Sessions()
	rows := make([]models.ScheduleSession, 0, len(sessions))
	for _, session := range sessions {
		state := models.SessionStateAuto
		if session.State == engine.SessionPinned {
			state = models.SessionStatePinned
		}
		rows = append(rows, models.ScheduleSession{
			ClassID:      session.Class.ID,
			SessionIndex: session.Index,
			Day:          int(session.Day),
			Period:       int(session.Period),
			Room:         string(session.Room),
			State:        state,
		})
	}
	return rows
}

func unplacedRowsFrom(records []engine.UnplacedRecord) []models.UnplacedClass {
	rows := make([]models.UnplacedClass, 0, len(records))
	for _, record := range records {
		rows = append(rows, models.UnplacedClass{
			ClassID:  record.ClassID,
			Sessions: record.Sessions,
			Reasons:  models.StringList(record.Reasons),
		})
	}
	return rows
}

func rejectedRowsFrom(pins []engine.RejectedPin) []models.RejectedPin {
	rows := make([]models.RejectedPin, 0, len(pins))
	for _, pin := range pins {
		rows = append(rows, models.RejectedPin{
			ClassID:      pin.ClassID,
			SessionIndex: pin.Index,
			Day:          int(pin.Day),
			Period:       int(pin.Period),
			Room:         string(pin.Room),
			Conflicts:    conflictRowsFrom(pin.Conflicts),
		})
	}
	return rows
}

func conflictRowsFrom(details []engine.ConflictDetail) models.ConflictList {
	if len(details) == 0 {
		return nil
	}
	list := make(models.ConflictList, 0, len(details))
	for _, detail := range details {
		list = append(list, models.SessionConflict{
			Kind:     string(detail.Kind),
			ClassID:  detail.ClassID,
			Teacher:  detail.Teacher,
			Students: detail.Students,
			Room:     string(detail.Room),
			Reason:   detail.Reason(),
		})
	}
	return list
}

func conflictResponsesFromEngine(details []engine.ConflictDetail) []dto.ConflictResponse {
	if len(details) == 0 {
		return nil
	}
	out := make([]dto.ConflictResponse, 0, len(details))
	for _, detail := range details {
		out = append(out, dto.ConflictResponse{
			Kind:     string(detail.Kind),
			ClassID:  detail.ClassID,
			Teacher:  detail.Teacher,
			Students: detail.Students,
			Room:     string(detail.Room),
			Reason:   detail.Reason(),
		})
	}
	return out
}

func conflictResponsesFromModels(list models.ConflictList) []dto.ConflictResponse {
	if len(list) == 0 {
		return nil
	}
	out := make([]dto.ConflictResponse, 0, len(list))
	for _, conflict := range list {
		out = append(out, dto.ConflictResponse{
			Kind:     conflict.Kind,
			ClassID:  conflict.ClassID,
			Teacher:  conflict.Teacher,
			Students: conflict.Students,
			Room:     conflict.Room,
			Reason:   conflict.Reason,
		})
	}
	return out
}

func statsFor(schedule *models.Schedule, complete bool) dto.ScheduleStatsResponse {
	return dto.ScheduleStatsResponse{
		Approach:       schedule.Approach,
		Score:          schedule.Score,
		PlacedSessions: schedule.PlacedSessions,
		TotalSessions:  schedule.TotalSessions,
		Complete:       complete,
	}
}

func buildScheduleResponse(
	schedule *models.Schedule,
	sessions []models.ScheduleSession,
	unplaced []models.UnplacedClass,
	rejected []models.RejectedPin,
	teachers map[string]string,
) *dto.ScheduleResponse {
	grid := make(map[string]map[int][]dto.SessionResponse)
	classIDs := make(map[string]struct{})
	for _, row := range sessions {
		dayName := engine.Day(row.Day).String()
		if grid[dayName] == nil {
			grid[dayName] = make(map[int][]dto.SessionResponse)
		}
		grid[dayName][row.Period] = append(grid[dayName][row.Period], dto.SessionResponse{
			ClassID:      row.ClassID,
			SessionIndex: row.SessionIndex,
			Teacher:      teachers[row.ClassID],
			Day:          dayName,
			Period:       row.Period,
			Room:         row.Room,
			RoomLabel:    engine.Room(row.Room).Label(),
			State:        string(row.State),
		})
		classIDs[row.ClassID] = struct{}{}
	}

	unplacedResp := make([]dto.UnplacedResponse, 0, len(unplaced))
	for _, record := range unplaced {
		unplacedResp = append(unplacedResp, dto.UnplacedResponse{
			ClassID:  record.ClassID,
			Sessions: record.Sessions,
			Reasons:  record.Reasons,
		})
		classIDs[record.ClassID] = struct{}{}
	}

	rejectedResp := make([]dto.RejectedPinResponse, 0, len(rejected))
	for _, pin := range rejected {
		dayName := ""
		if pin.Day != 0 {
			dayName = engine.Day(pin.Day).String()
		}
		rejectedResp = append(rejectedResp, dto.RejectedPinResponse{
			ClassID:      pin.ClassID,
			SessionIndex: pin.SessionIndex,
			Day:          dayName,
			Period:       pin.Period,
			Room:         pin.Room,
			Conflicts:    conflictResponsesFromModels(pin.Conflicts),
		})
	}

	names := make([]string, 0, len(classIDs))
	for classID := range classIDs {
		names = append(names, classID)
	}

	resp := &dto.ScheduleResponse{
		Schedule: *schedule,
		Grid:     grid,
		Stats:    statsFor(schedule, len(unplaced) == 0),
		Colors:   colors.Assign(names),
	}
	if len(unplacedResp) > 0 {
		resp.Unplaced = unplacedResp
	}
	if len(rejectedResp) > 0 {
		resp.RejectedPins = rejectedResp
	}
	return resp
}
