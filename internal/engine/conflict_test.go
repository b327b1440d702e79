package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictsSharedTeacher(t *testing.T) {
	a := &ClassSection{ID: "MATH-7", Teacher: "Reyes, Ana"}
	b := &ClassSection{ID: "MATH-8", Teacher: "Reyes, Ana"}

	details := Conflicts(a, b)
	require.Len(t, details, 1)
	assert.Equal(t, ConflictTeacher, details[0].Kind)
	assert.Equal(t, "MATH-8", details[0].ClassID)
	assert.Contains(t, details[0].Reason(), "Reyes, Ana")
}

func TestConflictsSharedStudents(t *testing.T) {
	a := &ClassSection{ID: "SCI-7", Teacher: "Reyes, Ana", Students: []string{"Kila, John", "Toua, Mary", "Vagi, Peter"}}
	b := &ClassSection{ID: "HIST-7", Teacher: "Kone, Ben", Students: []string{"Toua, Mary", "Kila, John", "Eka, Rose"}}

	details := Conflicts(a, b)
	require.Len(t, details, 1)
	assert.Equal(t, ConflictStudents, details[0].Kind)
	assert.Equal(t, []string{"Kila, John", "Toua, Mary"}, details[0].Students)
}

func TestConflictsSymmetric(t *testing.T) {
	a := &ClassSection{ID: "SCI-7", Teacher: "Reyes, Ana", Students: []string{"Kila, John"}}
	b := &ClassSection{ID: "HIST-7", Teacher: "Reyes, Ana", Students: []string{"Kila, John"}}

	forward := Conflicts(a, b)
	backward := Conflicts(b, a)
	require.Len(t, forward, 2)
	require.Len(t, backward, 2)
	assert.Equal(t, forward[0].Kind, backward[0].Kind)
	assert.Equal(t, forward[1].Students, backward[1].Students)
}

func TestConflictsNone(t *testing.T) {
	a := &ClassSection{ID: "SCI-7", Teacher: "Reyes, Ana", Students: []string{"Kila, John"}}
	b := &ClassSection{ID: "HIST-7", Teacher: "Kone, Ben", Students: []string{"Eka, Rose"}}
	assert.Empty(t, Conflicts(a, b))
}

func TestConflictsEmptyTeacherNeverCollides(t *testing.T) {
	a := &ClassSection{ID: "A"}
	b := &ClassSection{ID: "B"}
	assert.Empty(t, Conflicts(a, b))
}
