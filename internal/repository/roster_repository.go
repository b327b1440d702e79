package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/veritas-edu/class-scheduler/internal/models"
)

// RosterRepository persists imported class lists.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a roster together with its classes in one transaction.
func (r *RosterRepository) Create(ctx context.Context, roster *models.Roster, classes []models.RosterClass) error {
	if roster == nil {
		return fmt.Errorf("roster payload is nil")
	}
	if roster.ID == "" {
		roster.ID = uuid.NewString()
	}
	if roster.CreatedAt.IsZero() {
		roster.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRoster = `
INSERT INTO rosters (id, name, source_filename, created_at)
VALUES (:id, :name, :source_filename, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, insertRoster, roster); err != nil {
		return fmt.Errorf("insert roster: %w", err)
	}

	const insertClass = `
INSERT INTO roster_classes (id, roster_id, class_id, teacher, course_category, credit_units, students, selected, room_override)
VALUES (:id, :roster_id, :class_id, :teacher, :course_category, :credit_units, :students, :selected, :room_override)`
	for i := range classes {
		classes[i].RosterID = roster.ID
		if classes[i].ID == "" {
			classes[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, insertClass, classes[i]); err != nil {
			return fmt.Errorf("insert roster class %s: %w", classes[i].ClassID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster transaction: %w", err)
	}
	roster.ClassCount = len(classes)
	return nil
}

// FindByID loads a roster by its identifier.
func (r *RosterRepository) FindByID(ctx context.Context, id string) (*models.Roster, error) {
	const query = `
SELECT r.id, r.name, r.source_filename, r.created_at,
       (SELECT COUNT(*) FROM roster_classes c WHERE c.roster_id = r.id) AS class_count
FROM rosters r WHERE r.id = $1`
	var roster models.Roster
	if err := r.db.GetContext(ctx, &roster, query, id); err != nil {
		return nil, err
	}
	return &roster, nil
}

// List returns stored rosters, newest first.
func (r *RosterRepository) List(ctx context.Context) ([]models.Roster, error) {
	const query = `
SELECT r.id, r.name, r.source_filename, r.created_at,
       (SELECT COUNT(*) FROM roster_classes c WHERE c.roster_id = r.id) AS class_count
FROM rosters r ORDER BY r.created_at DESC`
	var rosters []models.Roster
	if err := r.db.SelectContext(ctx, &rosters, query); err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	return rosters, nil
}

// Classes returns every class of a roster in stable class-id order.
func (r *RosterRepository) Classes(ctx context.Context, rosterID string) ([]models.RosterClass, error) {
	const query = `
SELECT id, roster_id, class_id, teacher, course_category, credit_units, students, selected, room_override
FROM roster_classes WHERE roster_id = $1 ORDER BY class_id`
	var classes []models.RosterClass
	if err := r.db.SelectContext(ctx, &classes, query, rosterID); err != nil {
		return nil, fmt.Errorf("list roster classes: %w", err)
	}
	return classes, nil
}

// SelectedClasses returns only the classes marked for generation.
func (r *RosterRepository) SelectedClasses(ctx context.Context, rosterID string) ([]models.RosterClass, error) {
	const query = `
SELECT id, roster_id, class_id, teacher, course_category, credit_units, students, selected, room_override
FROM roster_classes WHERE roster_id = $1 AND selected = TRUE ORDER BY class_id`
	var classes []models.RosterClass
	if err := r.db.SelectContext(ctx, &classes, query, rosterID); err != nil {
		return nil, fmt.Errorf("list selected roster classes: %w", err)
	}
	return classes, nil
}

// UpdateClass adjusts selection and manual room of one class.
func (r *RosterRepository) UpdateClass(ctx context.Context, rosterID, classID string, selected *bool, roomOverride *string) error {
	set := ""
	args := []interface{}{}
	idx := 1
	if selected != nil {
		set += fmt.Sprintf("selected = $%d", idx)
		args = append(args, *selected)
		idx++
	}
	if roomOverride != nil {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("room_override = $%d", idx)
		args = append(args, *roomOverride)
		idx++
	}
	if set == "" {
		return nil
	}

	query := fmt.Sprintf("UPDATE roster_classes SET %s WHERE roster_id = $%d AND class_id = $%d", set, idx, idx+1)
	args = append(args, rosterID, classID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update roster class: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("roster class rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a roster and, via cascade, its classes and schedules.
func (r *RosterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM rosters WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete roster: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("roster rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
