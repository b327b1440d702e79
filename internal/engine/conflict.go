package engine

import (
	"fmt"
	"sort"
	"strings"
)

// ConflictKind labels the dimension two sessions collide on.
type ConflictKind string

const (
	ConflictTeacher   ConflictKind = "TEACHER"
	ConflictStudents  ConflictKind = "STUDENT"
	ConflictRoom      ConflictKind = "ROOM"
	ConflictSameClass ConflictKind = "CLASS"
)

// ConflictDetail describes one collision against an existing placement.
type ConflictDetail struct {
	Kind     ConflictKind
	ClassID  string
	Teacher  string
	Students []string
	Room     Room
}

// Reason renders the detail for diagnostics.
func (d ConflictDetail) Reason() string {
	switch d.Kind {
	case ConflictTeacher:
		return fmt.Sprintf("teacher %s also teaches %s", d.Teacher, d.ClassID)
	case ConflictStudents:
		if len(d.Students) <= 3 {
			return fmt.Sprintf("students shared with %s: %s", d.ClassID, strings.Join(d.Students, ", "))
		}
		return fmt.Sprintf("%d students shared with %s", len(d.Students), d.ClassID)
	case ConflictRoom:
		if d.Room == "" {
			return "no regular classroom available"
		}
		if d.ClassID == "" {
			return fmt.Sprintf("%s unavailable", d.Room.Label())
		}
		return fmt.Sprintf("%s taken by %s", d.Room.Label(), d.ClassID)
	case ConflictSameClass:
		return fmt.Sprintf("another session of %s already holds this slot", d.ClassID)
	default:
		return fmt.Sprintf("conflict with %s", d.ClassID)
	}
}

// Conflicts tests two classes for simultaneous-meeting collisions: a shared
// teacher or any shared students. Symmetric and free of side effects.
func Conflicts(a, b *ClassSection) []ConflictDetail {
	var details []ConflictDetail
	if a.Teacher != "" && a.Teacher == b.Teacher {
		details = append(details, ConflictDetail{
			Kind:    ConflictTeacher,
			ClassID: b.ID,
			Teacher: b.Teacher,
		})
	}
	if shared := sharedStudents(a.Students, b.Students); len(shared) > 0 {
		details = append(details, ConflictDetail{
			Kind:     ConflictStudents,
			ClassID:  b.ID,
			Students: shared,
		})
	}
	return details
}

func sharedStudents(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a))
	for _, student := range a {
		seen[student] = struct{}{}
	}
	var shared []string
	for _, student := range b {
		if _, ok := seen[student]; ok {
			shared = append(shared, student)
			delete(seen, student)
		}
	}
	sort.Strings(shared)
	return shared
}
