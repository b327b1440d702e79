// Package roster parses uploaded class lists. The expected layout is a
// CSV with a header row naming at least Class, Teacher and Units, plus
// optional Course Name and Students columns. Students are separated by
// semicolons within their cell.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Class is one parsed class list row.
type Class struct {
	ClassID        string   `json:"classId"`
	CourseCategory string   `json:"courseCategory"`
	Teacher        string   `json:"teacher"`
	CreditUnits    int      `json:"creditUnits"`
	Students       []string `json:"students"`
}

// Enrollment returns the number of listed students.
func (c Class) Enrollment() int {
	return len(c.Students)
}

const (
	colClass    = "class"
	colCourse   = "course name"
	colTeacher  = "teacher"
	colUnits    = "units"
	colStudents = "students"
)

// ParseClassList reads a CSV class list. maxClasses caps the accepted
// row count when positive.
func ParseClassList(r io.Reader, maxClasses int) ([]Class, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("class list is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colClass, colTeacher, colUnits} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var classes []Class
	seen := make(map[string]bool)
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		row++

		classID := field(record, columns, colClass)
		if classID == "" {
			continue
		}
		if seen[classID] {
			return nil, fmt.Errorf("row %d: duplicate class %q", row, classID)
		}
		seen[classID] = true

		units, err := parseUnits(field(record, columns, colUnits))
		if err != nil {
			return nil, fmt.Errorf("row %d: class %q: %w", row, classID, err)
		}

		classes = append(classes, Class{
			ClassID:        classID,
			CourseCategory: field(record, columns, colCourse),
			Teacher:        field(record, columns, colTeacher),
			CreditUnits:    units,
			Students:       splitStudents(field(record, columns, colStudents)),
		})
		if maxClasses > 0 && len(classes) > maxClasses {
			return nil, fmt.Errorf("class list exceeds %d classes", maxClasses)
		}
	}

	if len(classes) == 0 {
		return nil, fmt.Errorf("class list has no rows")
	}
	return classes, nil
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseUnits accepts whole numbers and float spellings like "8.0".
func parseUnits(raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("units missing")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid units %q", raw)
	}
	return int(f), nil
}

func splitStudents(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	students := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			students = append(students, trimmed)
		}
	}
	return students
}
