package models

import "time"

// Roster is one imported class list.
type Roster struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	SourceFilename string    `db:"source_filename" json:"source_filename,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	ClassCount     int       `db:"class_count" json:"class_count"`
}

// RosterClass is one class row inside a roster. Selected marks whether
// the class takes part in schedule generation; RoomOverride, when set,
// forces a fixed room for every session of the class.
type RosterClass struct {
	ID             string     `db:"id" json:"id"`
	RosterID       string     `db:"roster_id" json:"roster_id"`
	ClassID        string     `db:"class_id" json:"class_id"`
	Teacher        string     `db:"teacher" json:"teacher"`
	CourseCategory string     `db:"course_category" json:"course_category,omitempty"`
	CreditUnits    int        `db:"credit_units" json:"credit_units"`
	Students       StringList `db:"students" json:"students"`
	Selected       bool       `db:"selected" json:"selected"`
	RoomOverride   string     `db:"room_override" json:"room_override,omitempty"`
}

// Enrollment returns the number of listed students.
func (c RosterClass) Enrollment() int {
	return len(c.Students)
}
