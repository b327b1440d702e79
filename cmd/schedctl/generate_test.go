package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-edu/class-scheduler/internal/engine"
)

const classListFixture = `Class,Course Name,Teacher,Units,Students
MATH-7,Mathematics,Alice Moore,8,amy;ben
BIO-7,Biology,Brian Chu,4,cleo;dan
ENG-7,English,Carol Diaz,12,eve;finn
`

func writeClassList(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classlist.csv")
	require.NoError(t, os.WriteFile(path, []byte(classListFixture), 0o644))
	return path
}

func runGenerate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"generate"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestGeneratePrintsSummary(t *testing.T) {
	out, err := runGenerate(t, writeClassList(t))
	require.NoError(t, err)

	assert.Contains(t, out, "approach: core-strict")
	assert.Contains(t, out, "placed: 6/6")
	assert.Contains(t, out, "MATH-7")
	assert.Contains(t, out, "AUTO")
}

func TestGenerateGridRoundTrip(t *testing.T) {
	classList := writeClassList(t)
	dir := t.TempDir()
	firstPath := filepath.Join(dir, "first.json")
	secondPath := filepath.Join(dir, "second.json")

	_, err := runGenerate(t, classList, "--out", firstPath)
	require.NoError(t, err)

	var first gridFile
	data, err := os.ReadFile(firstPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &first))
	require.Len(t, first.Sessions, 6)

	// Feeding the grid back in pins every session; the rerun must land on
	// the identical grid.
	out, err := runGenerate(t, classList, "--constraints", firstPath, "--out", secondPath)
	require.NoError(t, err)
	assert.Contains(t, out, "PINNED")
	assert.NotContains(t, out, "rejected pin")

	var second gridFile
	data, err = os.ReadFile(secondPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &second))
	assert.Equal(t, first.Sessions, second.Sessions)
}

func TestGenerateMissingClassList(t *testing.T) {
	_, err := runGenerate(t, filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestGenerateRejectsBadConstraintsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := runGenerate(t, writeClassList(t), "--constraints", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sessions or pins")
}

func TestLoadConstraintsAcceptsPinsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.json")
	doc := `{"pins": [
		{"classId": "MATH-7", "sessionIndex": 0, "day": "Monday", "period": 2, "room": "classroom_2"},
		{"classId": "BIO-7", "sessionIndex": 0, "day": "Friday"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	constraints, err := loadConstraints(path)
	require.NoError(t, err)
	require.Len(t, constraints, 2)
	assert.Equal(t, engine.Exact(engine.Monday, 2, engine.RoomClassroom2), constraints["MATH-7"][0])
	assert.Equal(t, engine.OnDay(engine.Friday), constraints["BIO-7"][0])
}

func TestLoadConstraintsRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.json")
	doc := `{"pins": [
		{"classId": "MATH-7", "sessionIndex": 0, "day": "Monday"},
		{"classId": "MATH-7", "sessionIndex": 0, "day": "Tuesday"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := loadConstraints(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate constraint")
}

func TestRowConstraint(t *testing.T) {
	tests := []struct {
		name    string
		row     gridSession
		want    engine.SessionConstraint
		wantErr bool
	}{
		{
			name: "full pin",
			row:  gridSession{ClassID: "MATH-7", Day: "Monday", Period: 2, Room: "classroom_4"},
			want: engine.Exact(engine.Monday, 2, engine.RoomClassroom4),
		},
		{
			name: "slot pin",
			row:  gridSession{ClassID: "MATH-7", Day: "Tuesday", Period: 5},
			want: engine.At(engine.Tuesday, 5),
		},
		{
			name: "day only",
			row:  gridSession{ClassID: "MATH-7", Day: "Wednesday"},
			want: engine.OnDay(engine.Wednesday),
		},
		{
			name: "period only",
			row:  gridSession{ClassID: "MATH-7", Period: 4},
			want: engine.AtPeriod(4),
		},
		{
			name: "room only",
			row:  gridSession{ClassID: "MATH-7", Room: "Computer Lab"},
			want: engine.InRoom(engine.RoomComputerLab),
		},
		{
			name: "empty row",
			row:  gridSession{ClassID: "MATH-7"},
			want: engine.Unset(),
		},
		{
			name:    "day with room but no period",
			row:     gridSession{ClassID: "MATH-7", Day: "Monday", Room: "classroom_2"},
			wantErr: true,
		},
		{
			name:    "unknown day",
			row:     gridSession{ClassID: "MATH-7", Day: "Caturday"},
			wantErr: true,
		},
		{
			name:    "unknown room",
			row:     gridSession{ClassID: "MATH-7", Day: "Monday", Period: 1, Room: "broom closet"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rowConstraint(tt.row)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteGridCSV(t *testing.T) {
	classList := writeClassList(t)
	path := filepath.Join(t.TempDir(), "grid.csv")

	_, err := runGenerate(t, classList, "--out", path)
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"class_id", "session_index", "teacher", "day", "period", "room"}, rows[0])
}

func TestWriteGridUnsupportedExtension(t *testing.T) {
	classList := writeClassList(t)

	_, err := runGenerate(t, classList, "--out", filepath.Join(t.TempDir(), "grid.xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output extension")
}
