package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleStatus captures the schedule lifecycle.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusPublished ScheduleStatus = "PUBLISHED"
)

// SessionState marks how a session reached its slot.
type SessionState string

const (
	SessionStatePinned SessionState = "PINNED"
	SessionStateAuto   SessionState = "AUTO"
)

// Schedule is one generated weekly timetable for a roster.
type Schedule struct {
	ID             string         `db:"id" json:"id"`
	RosterID       string         `db:"roster_id" json:"roster_id"`
	Name           string         `db:"name" json:"name"`
	Status         ScheduleStatus `db:"status" json:"status"`
	Approach       string         `db:"approach" json:"approach"`
	Score          int            `db:"score" json:"score"`
	AllowExtended  bool           `db:"allow_extended" json:"allow_extended"`
	PlacedSessions int            `db:"placed_sessions" json:"placed_sessions"`
	TotalSessions  int            `db:"total_sessions" json:"total_sessions"`
	Constraints    ConstraintSet  `db:"constraints" json:"constraints,omitempty"`
	RoomOverrides  RoomOverrides  `db:"room_overrides" json:"room_overrides,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
	PublishedAt    *time.Time     `db:"published_at" json:"published_at,omitempty"`
}

// ScheduleSession is one placed session row.
type ScheduleSession struct {
	ID           string       `db:"id" json:"id"`
	ScheduleID   string       `db:"schedule_id" json:"schedule_id"`
	ClassID      string       `db:"class_id" json:"class_id"`
	SessionIndex int          `db:"session_index" json:"session_index"`
	Day          int          `db:"day" json:"day"`
	Period       int          `db:"period" json:"period"`
	Room         string       `db:"room" json:"room"`
	State        SessionState `db:"state" json:"state"`
}

// UnplacedClass records the sessions of a class the generator gave up on.
type UnplacedClass struct {
	ScheduleID string     `db:"schedule_id" json:"-"`
	ClassID    string     `db:"class_id" json:"class_id"`
	Sessions   int        `db:"sessions" json:"sessions"`
	Reasons    StringList `db:"reasons" json:"reasons,omitempty"`
}

// RejectedPin records a requested placement that could not be honoured.
type RejectedPin struct {
	ScheduleID   string       `db:"schedule_id" json:"-"`
	ClassID      string       `db:"class_id" json:"class_id"`
	SessionIndex int          `db:"session_index" json:"session_index"`
	Day          int          `db:"day" json:"day,omitempty"`
	Period       int          `db:"period" json:"period,omitempty"`
	Room         string       `db:"room" json:"room,omitempty"`
	Conflicts    ConflictList `db:"conflicts" json:"conflicts,omitempty"`
}

// SessionConflict is one conflict surfaced to clients.
type SessionConflict struct {
	Kind     string   `json:"kind"`
	ClassID  string   `json:"class_id,omitempty"`
	Teacher  string   `json:"teacher,omitempty"`
	Students []string `json:"students,omitempty"`
	Room     string   `json:"room,omitempty"`
	Reason   string   `json:"reason"`
}

// SessionPin is the persisted form of one session constraint.
type SessionPin struct {
	Kind   string `json:"kind"`
	Day    int    `json:"day,omitempty"`
	Period int    `json:"period,omitempty"`
	Room   string `json:"room,omitempty"`
}

// ConstraintSet maps class ID and session index to a pin, persisted as JSONB.
type ConstraintSet map[string]map[int]SessionPin

// Value marshals the constraint set to JSON for persistence.
func (s ConstraintSet) Value() (driver.Value, error) {
	if s == nil {
		s = ConstraintSet{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal constraint set: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the constraint set.
func (s *ConstraintSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("constraint set: %w", err)
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal constraint set: %w", err)
	}
	return nil
}

// RoomOverrides maps class IDs to fixed rooms, persisted as JSONB.
type RoomOverrides map[string]string

// Value marshals the overrides to JSON for persistence.
func (o RoomOverrides) Value() (driver.Value, error) {
	if o == nil {
		o = RoomOverrides{}
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal room overrides: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the overrides map.
func (o *RoomOverrides) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("room overrides: %w", err)
	}
	if len(data) == 0 {
		*o = nil
		return nil
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("unmarshal room overrides: %w", err)
	}
	return nil
}

// ConflictList persists conflict details as JSONB.
type ConflictList []SessionConflict

// Value marshals the conflicts to JSON for persistence.
func (l ConflictList) Value() (driver.Value, error) {
	if l == nil {
		l = ConflictList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal conflict list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the conflict list.
func (l *ConflictList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("conflict list: %w", err)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal conflict list: %w", err)
	}
	return nil
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	RosterID  string
	Status    ScheduleStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
