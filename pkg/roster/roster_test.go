package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Class,Course Name,Teacher,Units,Students
MATH-7,Mathematics 7,"Reyes, Ana",12,"Kila, John; Toua, Mary; Eka, Rose"
GECO-8,GECO Computing,"Kone, Ben",8,"Kila, John"
ART-9,Visual Arts,"Tama, Philip",4,
`

func TestParseClassList(t *testing.T) {
	classes, err := ParseClassList(strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)
	require.Len(t, classes, 3)

	math := classes[0]
	assert.Equal(t, "MATH-7", math.ClassID)
	assert.Equal(t, "Mathematics 7", math.CourseCategory)
	assert.Equal(t, "Reyes, Ana", math.Teacher)
	assert.Equal(t, 12, math.CreditUnits)
	assert.Equal(t, []string{"Kila, John", "Toua, Mary", "Eka, Rose"}, math.Students)
	assert.Equal(t, 3, math.Enrollment())

	art := classes[2]
	assert.Empty(t, art.Students)
	assert.Equal(t, 0, art.Enrollment())
}

func TestParseClassListFloatUnits(t *testing.T) {
	csv := "Class,Teacher,Units\nSCI-7,\"Kone, Ben\",8.0\n"
	classes, err := ParseClassList(strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, 8, classes[0].CreditUnits)
}

func TestParseClassListHeaderCaseInsensitive(t *testing.T) {
	csv := "CLASS,TEACHER,UNITS\nSCI-7,\"Kone, Ben\",4\n"
	classes, err := ParseClassList(strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, "SCI-7", classes[0].ClassID)
}

func TestParseClassListRejectsDuplicates(t *testing.T) {
	csv := "Class,Teacher,Units\nSCI-7,A,4\nSCI-7,B,4\n"
	_, err := ParseClassList(strings.NewReader(csv), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate class")
}

func TestParseClassListMissingColumn(t *testing.T) {
	csv := "Class,Teacher\nSCI-7,A\n"
	_, err := ParseClassList(strings.NewReader(csv), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "units"`)
}

func TestParseClassListEnforcesLimit(t *testing.T) {
	csv := "Class,Teacher,Units\nA-1,T,4\nB-1,T,4\nC-1,T,4\n"
	_, err := ParseClassList(strings.NewReader(csv), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 2 classes")
}

func TestParseClassListSkipsBlankClassRows(t *testing.T) {
	csv := "Class,Teacher,Units\nSCI-7,A,4\n,,\n"
	classes, err := ParseClassList(strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Len(t, classes, 1)
}

func TestParseClassListEmptyInput(t *testing.T) {
	_, err := ParseClassList(strings.NewReader(""), 0)
	require.Error(t, err)

	_, err = ParseClassList(strings.NewReader("Class,Teacher,Units\n"), 0)
	require.Error(t, err)
}

func TestParseClassListBadUnits(t *testing.T) {
	csv := "Class,Teacher,Units\nSCI-7,A,eight\n"
	_, err := ParseClassList(strings.NewReader(csv), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid units "eight"`)
}
