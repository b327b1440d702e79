package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleSingleThriceWeeklyClass(t *testing.T) {
	scheduler := newTestScheduler()
	class := &ClassSection{ID: "BIB-10", Teacher: "Tama, Philip", CreditUnits: 12, Students: []string{"Kila, John"}}

	solution, err := scheduler.Schedule(Request{Classes: []*ClassSection{class}})

	require.NoError(t, err)
	require.True(t, solution.Complete())
	assert.Empty(t, solution.RejectedPins)
	assert.Equal(t, 3, solution.PlacedSessions)
	assert.Equal(t, 3, solution.TotalSessions)
	assert.Equal(t, "core-strict", solution.Approach)

	var days []Day
	for _, session := range solution.Timetable.Grid().Sessions() {
		days = append(days, session.Day)
		assert.Equal(t, Period(2), session.Period)
	}
	assert.Equal(t, []Day{Monday, Wednesday, Friday}, days)
}

func TestScheduleKeepsSharedStudentsApart(t *testing.T) {
	scheduler := newTestScheduler()
	a := &ClassSection{ID: "SCI-7", Teacher: "Reyes, Ana", CreditUnits: 4, Students: []string{"Kila, John"}}
	b := &ClassSection{ID: "HIST-7", Teacher: "Kone, Ben", CreditUnits: 4, Students: []string{"Kila, John"}}

	solution, err := scheduler.Schedule(Request{Classes: []*ClassSection{a, b}})

	require.NoError(t, err)
	require.True(t, solution.Complete())

	slots := make(map[Slot]string)
	for _, session := range solution.Timetable.Grid().Sessions() {
		if other, ok := slots[session.Slot()]; ok {
			t.Fatalf("classes %s and %s share slot %s", other, session.Class.ID, session.Slot())
		}
		slots[session.Slot()] = session.Class.ID
	}
}

func TestScheduleRejectsInvalidCreditUnits(t *testing.T) {
	scheduler := newTestScheduler()
	bad := &ClassSection{ID: "ART-9", Teacher: "Eka, Rose", CreditUnits: 6}

	solution, err := scheduler.Schedule(Request{Classes: []*ClassSection{bad}})

	require.Nil(t, solution)
	var invalid *InvalidCreditUnitsError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "ART-9", invalid.ClassID)
	assert.Equal(t, 6, invalid.Units)
}

func TestScheduleRejectedPinStillPartialSuccess(t *testing.T) {
	scheduler := newTestScheduler()
	holder := &ClassSection{ID: "MATH-7", Teacher: "Reyes, Ana", CreditUnits: 4}
	twice := &ClassSection{ID: "MATH-8", Teacher: "Reyes, Ana", CreditUnits: 8}
	classes := []*ClassSection{holder, twice}

	solution, err := scheduler.Schedule(Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"MATH-7": {0: At(Monday, 2)},
			"MATH-8": {0: At(Monday, 2)},
		},
	})

	require.NoError(t, err)
	require.Len(t, solution.RejectedPins, 1)
	assert.Equal(t, "MATH-8", solution.RejectedPins[0].ClassID)
	assert.True(t, solution.Complete(), "a rejected pin alone does not fail the run")

	// The rejected session is gone for the run; the class's other session
	// still auto-places.
	placed := 0
	for _, session := range solution.Timetable.Grid().Sessions() {
		if session.Class.ID == "MATH-8" {
			placed++
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 2, solution.PlacedSessions)
	assert.Equal(t, 3, solution.TotalSessions)
}

func TestSchedulePinAppearsExactlyWherePinned(t *testing.T) {
	scheduler := newTestScheduler()
	class := &ClassSection{ID: "BIB-10", Teacher: "Tama, Philip", CreditUnits: 12}

	solution, err := scheduler.Schedule(Request{
		Classes: []*ClassSection{class},
		Constraints: map[string]map[int]SessionConstraint{
			"BIB-10": {0: Exact(Thursday, 8, RoomClassroom6)},
		},
	})

	require.NoError(t, err)
	require.True(t, solution.Complete())

	session, ok := solution.Timetable.Grid().Find("BIB-10", 0)
	require.True(t, ok)
	assert.Equal(t, Thursday, session.Day)
	assert.Equal(t, Period(8), session.Period)
	assert.Equal(t, RoomClassroom6, session.Room)
	assert.Equal(t, SessionPinned, session.State)
}

// overloadedTeacher builds n once-weekly classes all taught by one teacher.
func overloadedTeacher(n int) []*ClassSection {
	classes := make([]*ClassSection, n)
	for i := range classes {
		classes[i] = &ClassSection{
			ID:          fmt.Sprintf("ENG-%02d", i),
			Teacher:     "Smith, Lori",
			CreditUnits: 4,
		}
	}
	return classes
}

func TestScheduleFailsBeyondUnplacedThreshold(t *testing.T) {
	scheduler := newTestScheduler()
	// One teacher, 30 weekly sessions, 25 reachable slots without the
	// extended period: five classes cannot fit.
	classes := overloadedTeacher(30)

	solution, err := scheduler.Schedule(Request{Classes: classes})

	require.Nil(t, solution)
	var incomplete *IncompleteScheduleError
	require.True(t, errors.As(err, &incomplete))
	assert.Len(t, incomplete.Unplaced, 5)
	assert.Equal(t, 25, incomplete.PlacedSessions)
	assert.Equal(t, 30, incomplete.TotalSessions)
}

func TestScheduleAcceptsPartialWithinThreshold(t *testing.T) {
	scheduler := NewScheduler(Config{MaxUnplacedFraction: 0.2})
	classes := overloadedTeacher(30)

	solution, err := scheduler.Schedule(Request{Classes: classes})

	require.NoError(t, err)
	assert.False(t, solution.Complete())
	assert.Len(t, solution.Unplaced, 5)
	assert.Equal(t, 25, solution.PlacedSessions)
}

func TestScheduleExtendedPeriodsRaiseCapacity(t *testing.T) {
	scheduler := newTestScheduler()
	classes := overloadedTeacher(30)

	solution, err := scheduler.Schedule(Request{Classes: classes, AllowExtendedPeriods: true})

	require.NoError(t, err)
	require.True(t, solution.Complete())
	assert.Contains(t, solution.Approach, "extended")
	assert.Equal(t, 30, solution.PlacedSessions)
}

func TestScheduleGridInvariants(t *testing.T) {
	scheduler := newTestScheduler()
	classes := []*ClassSection{
		{ID: "MATH-7", Teacher: "Reyes, Ana", CreditUnits: 12, Students: []string{"Kila, John", "Toua, Mary"}},
		{ID: "SCI-7", Teacher: "Kone, Ben", CreditUnits: 8, Students: []string{"Kila, John", "Eka, Rose"}},
		{ID: "HIST-7", Teacher: "Reyes, Ana", CreditUnits: 4, Students: []string{"Vagi, Peter"}},
		{ID: "GECO-7", Teacher: "Smith, Lori", CourseCategory: "GECO Computer Literacy", CreditUnits: 8, Students: []string{"Toua, Mary"}},
		{ID: "GECO-8", Teacher: "Tama, Philip", CourseCategory: "GECO Computer Literacy", CreditUnits: 4, Students: []string{"Eka, Rose"}},
		{ID: "ENG-7", Teacher: "Smith, Lori", CreditUnits: 12, Students: []string{"Vagi, Peter", "Kila, John"}},
	}

	solution, err := scheduler.Schedule(Request{Classes: classes})
	require.NoError(t, err)

	for _, day := range Weekdays {
		for period := FirstPeriod; period <= LastPeriod; period++ {
			cell := solution.Timetable.Grid().At(day, period)
			teachers := make(map[string]bool)
			rooms := make(map[Room]bool)
			students := make(map[string]bool)
			for _, session := range cell {
				require.False(t, teachers[session.Class.Teacher],
					"teacher %s doubled at %s", session.Class.Teacher, session.Slot())
				teachers[session.Class.Teacher] = true

				require.NotEmpty(t, session.Room)
				require.False(t, rooms[session.Room],
					"room %s doubled at %s", session.Room, session.Slot())
				rooms[session.Room] = true

				for _, student := range session.Class.Students {
					require.False(t, students[student],
						"student %s doubled at %s", student, session.Slot())
					students[student] = true
				}
			}
		}
	}
}

func TestScheduleSessionAccounting(t *testing.T) {
	scheduler := newTestScheduler()
	classes := []*ClassSection{
		{ID: "MATH-7", Teacher: "Reyes, Ana", CreditUnits: 12},
		{ID: "SCI-7", Teacher: "Kone, Ben", CreditUnits: 8},
		{ID: "HIST-7", Teacher: "Eka, Rose", CreditUnits: 4},
	}

	solution, err := scheduler.Schedule(Request{
		Classes: classes,
		Constraints: map[string]map[int]SessionConstraint{
			"SCI-7": {0: At(Tuesday, 4)},
		},
	})
	require.NoError(t, err)

	placedPerClass := make(map[string]int)
	for _, session := range solution.Timetable.Grid().Sessions() {
		placedPerClass[session.Class.ID]++
	}
	unplacedPerClass := make(map[string]int)
	for _, record := range solution.Unplaced {
		unplacedPerClass[record.ClassID] += record.Sessions
	}
	rejectedPerClass := make(map[string]int)
	for _, pin := range solution.RejectedPins {
		rejectedPerClass[pin.ClassID]++
	}

	for _, class := range classes {
		frequency, err := Frequency(class.CreditUnits)
		require.NoError(t, err)
		total := placedPerClass[class.ID] + unplacedPerClass[class.ID] + rejectedPerClass[class.ID]
		assert.Equal(t, frequency, total, "session accounting for %s", class.ID)
	}
}

func TestScheduleRoundTripThroughConstraints(t *testing.T) {
	scheduler := newTestScheduler()
	classes := []*ClassSection{
		{ID: "MATH-7", Teacher: "Reyes, Ana", CreditUnits: 12, Students: []string{"Kila, John"}},
		{ID: "SCI-7", Teacher: "Kone, Ben", CreditUnits: 8, Students: []string{"Toua, Mary"}},
		{ID: "GECO-7", Teacher: "Smith, Lori", CourseCategory: "GECO Computer Literacy", CreditUnits: 4},
	}

	first, err := scheduler.Schedule(Request{Classes: classes})
	require.NoError(t, err)
	require.True(t, first.Complete())

	pins := make(map[string]map[int]SessionConstraint)
	for _, session := range first.Timetable.Grid().Sessions() {
		if pins[session.Class.ID] == nil {
			pins[session.Class.ID] = make(map[int]SessionConstraint)
		}
		pins[session.Class.ID][session.Index] = Exact(session.Day, session.Period, session.Room)
	}

	second, err := scheduler.Schedule(Request{Classes: classes, Constraints: pins})
	require.NoError(t, err)
	require.True(t, second.Complete())
	require.Empty(t, second.RejectedPins)

	firstSessions := first.Timetable.Grid().Sessions()
	secondSessions := second.Timetable.Grid().Sessions()
	require.Equal(t, len(firstSessions), len(secondSessions))
	for i := range firstSessions {
		assert.Equal(t, firstSessions[i].Class.ID, secondSessions[i].Class.ID)
		assert.Equal(t, firstSessions[i].Index, secondSessions[i].Index)
		assert.Equal(t, firstSessions[i].Slot(), secondSessions[i].Slot())
		assert.Equal(t, firstSessions[i].Room, secondSessions[i].Room)
	}
}

func TestScheduleEmptyRoster(t *testing.T) {
	scheduler := newTestScheduler()
	solution, err := scheduler.Schedule(Request{})
	require.NoError(t, err)
	require.True(t, solution.Complete())
	assert.Zero(t, solution.TotalSessions)
	assert.Empty(t, solution.Timetable.Grid().Sessions())
}
