package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/veritas-edu/class-scheduler/internal/models"
)

// ScheduleRepository persists generated timetables with their sessions
// and diagnostics.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts the schedule, its sessions, unplaced records and
// rejected pins in one transaction.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule, sessions []models.ScheduleSession, unplaced []models.UnplacedClass, rejected []models.RejectedPin) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertSchedule = `
INSERT INTO schedules (id, roster_id, name, status, approach, score, allow_extended, placed_sessions, total_sessions, constraints, room_overrides, created_at, updated_at, published_at)
VALUES (:id, :roster_id, :name, :status, :approach, :score, :allow_extended, :placed_sessions, :total_sessions, :constraints, :room_overrides, :created_at, :updated_at, :published_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, insertSchedule, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}

	if err := insertScheduleRows(ctx, tx, schedule.ID, sessions, unplaced, rejected); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule transaction: %w", err)
	}
	return nil
}

// ReplaceSessions swaps the stored sessions of a schedule for the given
// set. Used after a move so the persisted grid tracks the live one.
func (r *ScheduleRepository) ReplaceSessions(ctx context.Context, scheduleID string, sessions []models.ScheduleSession) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session replace transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_sessions WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("clear schedule sessions: %w", err)
	}
	if err := insertSessions(ctx, tx, scheduleID, sessions); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE schedules SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), scheduleID); err != nil {
		return fmt.Errorf("touch schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session replace transaction: %w", err)
	}
	return nil
}

func insertScheduleRows(ctx context.Context, tx *sqlx.Tx, scheduleID string, sessions []models.ScheduleSession, unplaced []models.UnplacedClass, rejected []models.RejectedPin) error {
	if err := insertSessions(ctx, tx, scheduleID, sessions); err != nil {
		return err
	}

	const insertUnplaced = `
INSERT INTO schedule_unplaced (schedule_id, class_id, sessions, reasons)
VALUES (:schedule_id, :class_id, :sessions, :reasons)`
	for i := range unplaced {
		unplaced[i].ScheduleID = scheduleID
		if _, err := sqlx.NamedExecContext(ctx, tx, insertUnplaced, unplaced[i]); err != nil {
			return fmt.Errorf("insert unplaced record %s: %w", unplaced[i].ClassID, err)
		}
	}

	const insertRejected = `
INSERT INTO schedule_rejected_pins (schedule_id, class_id, session_index, day, period, room, conflicts)
VALUES (:schedule_id, :class_id, :session_index, :day, :period, :room, :conflicts)`
	for i := range rejected {
		rejected[i].ScheduleID = scheduleID
		if _, err := sqlx.NamedExecContext(ctx, tx, insertRejected, rejected[i]); err != nil {
			return fmt.Errorf("insert rejected pin %s: %w", rejected[i].ClassID, err)
		}
	}
	return nil
}

func insertSessions(ctx context.Context, tx *sqlx.Tx, scheduleID string, sessions []models.ScheduleSession) error {
	const insertSession = `
INSERT INTO schedule_sessions (id, schedule_id, class_id, session_index, day, period, room, state)
VALUES (:id, :schedule_id, :class_id, :session_index, :day, :period, :room, :state)`
	for i := range sessions {
		sessions[i].ScheduleID = scheduleID
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, insertSession, sessions[i]); err != nil {
			return fmt.Errorf("insert session %s/%d: %w", sessions[i].ClassID, sessions[i].SessionIndex, err)
		}
	}
	return nil
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.RosterID != "" {
		conditions = append(conditions, fmt.Sprintf("roster_id = $%d", len(args)+1))
		args = append(args, filter.RosterID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"score":      true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, roster_id, name, status, approach, score, allow_extended, placed_sessions, total_sessions, constraints, room_overrides, created_at, updated_at, published_at %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, sortBy, order, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `SELECT id, roster_id, name, status, approach, score, allow_extended, placed_sessions, total_sessions, constraints, room_overrides, created_at, updated_at, published_at FROM schedules WHERE id = $1`
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// Sessions returns the placed sessions of a schedule in grid order.
func (r *ScheduleRepository) Sessions(ctx context.Context, scheduleID string) ([]models.ScheduleSession, error) {
	const query = `
SELECT id, schedule_id, class_id, session_index, day, period, room, state
FROM schedule_sessions WHERE schedule_id = $1 ORDER BY day, period, class_id, session_index`
	var sessions []models.ScheduleSession
	if err := r.db.SelectContext(ctx, &sessions, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule sessions: %w", err)
	}
	return sessions, nil
}

// Unplaced returns the unplaced diagnostics of a schedule.
func (r *ScheduleRepository) Unplaced(ctx context.Context, scheduleID string) ([]models.UnplacedClass, error) {
	const query = `
SELECT schedule_id, class_id, sessions, reasons
FROM schedule_unplaced WHERE schedule_id = $1 ORDER BY class_id`
	var unplaced []models.UnplacedClass
	if err := r.db.SelectContext(ctx, &unplaced, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list unplaced records: %w", err)
	}
	return unplaced, nil
}

// RejectedPins returns the rejected pin diagnostics of a schedule.
func (r *ScheduleRepository) RejectedPins(ctx context.Context, scheduleID string) ([]models.RejectedPin, error) {
	const query = `
SELECT schedule_id, class_id, session_index, day, period, room, conflicts
FROM schedule_rejected_pins WHERE schedule_id = $1 ORDER BY class_id, session_index`
	var rejected []models.RejectedPin
	if err := r.db.SelectContext(ctx, &rejected, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list rejected pins: %w", err)
	}
	return rejected, nil
}

// UpdateStatus transitions the schedule lifecycle state.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus, publishedAt *time.Time) error {
	const query = `UPDATE schedules SET status = $1, published_at = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, status, publishedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a stored schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM schedules WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
