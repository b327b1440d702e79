package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-edu/class-scheduler/internal/models"
)

func newRosterRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRosterRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rosters")).
		WithArgs(sqlmock.AnyArg(), "Semester 1", "classes.csv", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roster_classes")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "MATH-7", "Reyes, Ana", "Mathematics", 12, sqlmock.AnyArg(), true, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roster_classes")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "SCI-7", "Kone, Ben", "Science", 4, sqlmock.AnyArg(), true, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	roster := &models.Roster{Name: "Semester 1", SourceFilename: "classes.csv"}
	classes := []models.RosterClass{
		{ClassID: "MATH-7", Teacher: "Reyes, Ana", CourseCategory: "Mathematics", CreditUnits: 12, Students: models.StringList{"Kila, John"}, Selected: true},
		{ClassID: "SCI-7", Teacher: "Kone, Ben", CourseCategory: "Science", CreditUnits: 4, Selected: true},
	}
	err := repo.Create(context.Background(), roster, classes)
	require.NoError(t, err)
	assert.NotEmpty(t, roster.ID)
	assert.Equal(t, roster.ID, classes[0].RosterID)
	assert.Equal(t, 2, roster.ClassCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryClasses(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := sqlmock.NewRows([]string{"id", "roster_id", "class_id", "teacher", "course_category", "credit_units", "students", "selected", "room_override"}).
		AddRow("rc-1", "roster-1", "MATH-7", "Reyes, Ana", "Mathematics", 12, []byte(`["Kila, John","Toua, Mary"]`), true, "").
		AddRow("rc-2", "roster-1", "SCI-7", "Kone, Ben", "Science", 4, []byte(`[]`), false, "classroom_6")
	mock.ExpectQuery(regexp.QuoteMeta("FROM roster_classes WHERE roster_id = $1 ORDER BY class_id")).
		WithArgs("roster-1").
		WillReturnRows(rows)

	classes, err := repo.Classes(context.Background(), "roster-1")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, models.StringList{"Kila, John", "Toua, Mary"}, classes[0].Students)
	assert.Equal(t, 2, classes[0].Enrollment())
	assert.False(t, classes[1].Selected)
	assert.Equal(t, "classroom_6", classes[1].RoomOverride)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositorySelectedClasses(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := sqlmock.NewRows([]string{"id", "roster_id", "class_id", "teacher", "course_category", "credit_units", "students", "selected", "room_override"}).
		AddRow("rc-1", "roster-1", "MATH-7", "Reyes, Ana", "Mathematics", 12, []byte(`[]`), true, "")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE roster_id = $1 AND selected = TRUE ORDER BY class_id")).
		WithArgs("roster-1").
		WillReturnRows(rows)

	classes, err := repo.SelectedClasses(context.Background(), "roster-1")
	require.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryUpdateClassSelection(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE roster_classes SET selected = $1 WHERE roster_id = $2 AND class_id = $3")).
		WithArgs(false, "roster-1", "MATH-7").
		WillReturnResult(sqlmock.NewResult(1, 1))

	selected := false
	err := repo.UpdateClass(context.Background(), "roster-1", "MATH-7", &selected, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryUpdateClassRoomAndSelection(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE roster_classes SET selected = $1, room_override = $2 WHERE roster_id = $3 AND class_id = $4")).
		WithArgs(true, "classroom_5", "roster-1", "MATH-7").
		WillReturnResult(sqlmock.NewResult(1, 1))

	selected := true
	room := "classroom_5"
	err := repo.UpdateClass(context.Background(), "roster-1", "MATH-7", &selected, &room)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryUpdateClassNotFound(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE roster_classes SET selected = $1")).
		WithArgs(true, "roster-1", "NOPE-1").
		WillReturnResult(sqlmock.NewResult(1, 0))

	selected := true
	err := repo.UpdateClass(context.Background(), "roster-1", "NOPE-1", &selected, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "source_filename", "created_at", "class_count"}).
		AddRow("roster-1", "Semester 1", "classes.csv", time.Now(), 12)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rosters r WHERE r.id = $1")).
		WithArgs("roster-1").
		WillReturnRows(rows)

	roster, err := repo.FindByID(context.Background(), "roster-1")
	require.NoError(t, err)
	assert.Equal(t, 12, roster.ClassCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rosters WHERE id = $1")).
		WithArgs("roster-9").
		WillReturnResult(sqlmock.NewResult(1, 0))

	err := repo.Delete(context.Background(), "roster-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
