package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(Config{})
}

func frequenciesFor(t *testing.T, classes []*ClassSection) map[string]int {
	t.Helper()
	frequencies := make(map[string]int, len(classes))
	for _, class := range classes {
		frequency, err := classFrequency(class)
		require.NoError(t, err)
		frequencies[class.ID] = frequency
	}
	return frequencies
}

func TestResolverPlacesFullPin(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	class := &ClassSection{ID: "MATH-7", Teacher: "Reyes, Ana", CreditUnits: 4}
	classes := []*ClassSection{class}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"MATH-7": {0: Exact(Monday, 2, RoomClassroom4)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Empty(t, result.rejected)
	require.Empty(t, result.pending, "fully pinned class skips the search")
	assert.Equal(t, 1, result.placed)

	sessions := tt.Grid().At(Monday, 2)
	require.Len(t, sessions, 1)
	assert.Equal(t, SessionPinned, sessions[0].State)
	assert.Equal(t, RoomClassroom4, sessions[0].Room)

	holder, taken := tt.Ledger().Occupied(Slot{Day: Monday, Period: 2}, RoomClassroom4)
	require.True(t, taken)
	assert.Equal(t, "MATH-7", holder)
}

func TestResolverResolvesRoomForSlotPin(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	class := &ClassSection{ID: "GECO-7", Teacher: "Kone, Ben", CourseCategory: "GECO Computer Literacy", CreditUnits: 4}
	classes := []*ClassSection{class}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"GECO-7": {0: At(Wednesday, 4)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Empty(t, result.rejected)
	sessions := tt.Grid().At(Wednesday, 4)
	require.Len(t, sessions, 1)
	assert.Equal(t, RoomComputerLab, sessions[0].Room)
}

func TestResolverRejectsConflictingPin(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	first := &ClassSection{ID: "MATH-7", Teacher: "Reyes, Ana", CreditUnits: 4}
	second := &ClassSection{ID: "MATH-8", Teacher: "Reyes, Ana", CreditUnits: 4}
	classes := []*ClassSection{first, second}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"MATH-7": {0: At(Monday, 2)},
			"MATH-8": {0: At(Monday, 2)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Len(t, result.rejected, 1)
	rejected := result.rejected[0]
	assert.Equal(t, "MATH-8", rejected.ClassID)
	assert.Equal(t, Monday, rejected.Day)
	assert.Equal(t, Period(2), rejected.Period)
	require.NotEmpty(t, rejected.Conflicts)
	assert.Equal(t, ConflictTeacher, rejected.Conflicts[0].Kind)

	// The winning pin stays; the rejected one is not placed anywhere.
	assert.Len(t, tt.Grid().Sessions(), 1)
}

func TestResolverDayOnlyPinSearchesCoreFirst(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	blocker := &ClassSection{ID: "SCI-7", Teacher: "Kone, Ben", CreditUnits: 4}
	pinned := &ClassSection{ID: "HIST-7", Teacher: "Kone, Ben", CreditUnits: 4}
	classes := []*ClassSection{blocker, pinned}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"SCI-7":  {0: At(Thursday, 2)},
			"HIST-7": {0: OnDay(Thursday)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Empty(t, result.rejected)
	// Period 2 is taken by the same teacher, so the next core period wins.
	sessions := tt.Grid().At(Thursday, 4)
	require.Len(t, sessions, 1)
	assert.Equal(t, "HIST-7", sessions[0].Class.ID)
	assert.Equal(t, SessionPinned, sessions[0].State)
}

func TestResolverPeriodOnlyPinSearchesDays(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	blocker := &ClassSection{ID: "SCI-7", Teacher: "Kone, Ben", CreditUnits: 4}
	pinned := &ClassSection{ID: "HIST-7", Teacher: "Kone, Ben", CreditUnits: 4}
	classes := []*ClassSection{blocker, pinned}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"SCI-7":  {0: At(Monday, 6)},
			"HIST-7": {0: AtPeriod(6)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Empty(t, result.rejected)
	sessions := tt.Grid().At(Tuesday, 6)
	require.Len(t, sessions, 1)
	assert.Equal(t, "HIST-7", sessions[0].Class.ID)
}

func TestResolverRecordsRoomPreference(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	class := &ClassSection{ID: "ART-9", Teacher: "Eka, Rose", CreditUnits: 8}
	classes := []*ClassSection{class}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"ART-9": {0: InRoom(RoomClassroom6)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Empty(t, result.rejected)
	require.Len(t, result.pending, 1)
	pending := result.pending[0]
	assert.Equal(t, RoomClassroom6, pending.roomHint)
	assert.Equal(t, 2, pending.remaining)
	assert.Equal(t, []int{0, 1}, pending.freeIndexes)
}

func TestResolverExposesHintsFromPins(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	class := &ClassSection{ID: "BIB-10", Teacher: "Tama, Philip", CreditUnits: 12}
	classes := []*ClassSection{class}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"BIB-10": {1: At(Wednesday, 5)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Len(t, result.pending, 1)
	pending := result.pending[0]
	assert.Equal(t, []Day{Wednesday}, pending.pinnedDays)
	assert.Equal(t, Period(5), pending.periodHint)
	assert.Equal(t, 2, pending.remaining)
	assert.Equal(t, []int{0, 2}, pending.freeIndexes)
}

func TestResolverRejectsOutOfRangeIndex(t *testing.T) {
	scheduler := newTestScheduler()
	tt := NewTimetable()
	class := &ClassSection{ID: "MATH-7", Teacher: "Reyes, Ana", CreditUnits: 4}
	classes := []*ClassSection{class}
	req := Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"MATH-7": {2: At(Monday, 2)},
		},
	}

	result := scheduler.resolveManual(tt, classes, frequenciesFor(t, classes), req, false)

	require.Len(t, result.rejected, 1)
	assert.Equal(t, 2, result.rejected[0].Index)
	// The class still needs its real session.
	require.Len(t, result.pending, 1)
	assert.Equal(t, 1, result.pending[0].remaining)
}
