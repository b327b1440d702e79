package dto

import (
	"github.com/veritas-edu/class-scheduler/internal/models"
	"github.com/veritas-edu/class-scheduler/pkg/colors"
)

// SessionPinRequest fixes part of one session's placement before
// generation. The constraint kind follows from which fields are set:
// day alone, period alone, day and period, room alone, or all three.
type SessionPinRequest struct {
	ClassID      string `json:"classId" validate:"required"`
	SessionIndex int    `json:"sessionIndex" validate:"min=0,max=2"`
	Day          string `json:"day" validate:"omitempty,max=12"`
	Period       int    `json:"period" validate:"omitempty,min=1,max=8"`
	Room         string `json:"room" validate:"omitempty,max=40"`
}

// GenerateScheduleRequest instructs the generator to build a timetable
// from the selected classes of a roster. ClassIDs narrows the run to a
// subset of the selected classes when present.
type GenerateScheduleRequest struct {
	RosterID             string              `json:"rosterId" validate:"required,uuid"`
	Name                 string              `json:"name" validate:"omitempty,max=120"`
	ClassIDs             []string            `json:"classIds" validate:"omitempty,dive,required"`
	AllowExtendedPeriods bool                `json:"allowExtendedPeriods"`
	Pins                 []SessionPinRequest `json:"pins" validate:"omitempty,dive"`
	RoomOverrides        map[string]string   `json:"roomOverrides" validate:"omitempty"`
}

// SessionResponse is one placed session.
type SessionResponse struct {
	ClassID      string `json:"classId"`
	SessionIndex int    `json:"sessionIndex"`
	Teacher      string `json:"teacher,omitempty"`
	Day          string `json:"day"`
	Period       int    `json:"period"`
	Room         string `json:"room"`
	RoomLabel    string `json:"roomLabel,omitempty"`
	State        string `json:"state"`
}

// ConflictResponse is one conflict surfaced to clients.
type ConflictResponse struct {
	Kind     string   `json:"kind"`
	ClassID  string   `json:"classId,omitempty"`
	Teacher  string   `json:"teacher,omitempty"`
	Students []string `json:"students,omitempty"`
	Room     string   `json:"room,omitempty"`
	Reason   string   `json:"reason"`
}

// UnplacedResponse reports sessions the generator could not place.
type UnplacedResponse struct {
	ClassID  string   `json:"classId"`
	Sessions int      `json:"sessions"`
	Reasons  []string `json:"reasons,omitempty"`
}

// RejectedPinResponse reports a pin that could not be honoured.
type RejectedPinResponse struct {
	ClassID      string             `json:"classId"`
	SessionIndex int                `json:"sessionIndex"`
	Day          string             `json:"day,omitempty"`
	Period       int                `json:"period,omitempty"`
	Room         string             `json:"room,omitempty"`
	Conflicts    []ConflictResponse `json:"conflicts,omitempty"`
}

// ScheduleStatsResponse summarises generation accounting.
type ScheduleStatsResponse struct {
	Approach       string `json:"approach"`
	Score          int    `json:"score"`
	PlacedSessions int    `json:"placedSessions"`
	TotalSessions  int    `json:"totalSessions"`
	Complete       bool   `json:"complete"`
}

// ScheduleResponse is a full timetable with diagnostics. Grid maps day
// name to period to the sessions in that cell.
type ScheduleResponse struct {
	Schedule     models.Schedule                      `json:"schedule"`
	Grid         map[string]map[int][]SessionResponse `json:"grid"`
	Stats        ScheduleStatsResponse                `json:"stats"`
	Unplaced     []UnplacedResponse                   `json:"unplaced,omitempty"`
	RejectedPins []RejectedPinResponse                `json:"rejectedPins,omitempty"`
	Colors       map[string]colors.Pair               `json:"colors,omitempty"`
}

// ScheduleSummaryResponse is one row of a schedule listing.
type ScheduleSummaryResponse struct {
	Schedule models.Schedule       `json:"schedule"`
	Stats    ScheduleStatsResponse `json:"stats"`
}

// MoveSessionRequest relocates one placed session.
type MoveSessionRequest struct {
	ClassID       string `json:"classId" validate:"required"`
	SessionIndex  int    `json:"sessionIndex" validate:"min=0,max=2"`
	CurrentDay    string `json:"currentDay" validate:"required"`
	CurrentPeriod int    `json:"currentPeriod" validate:"required,min=1,max=8"`
	TargetDay     string `json:"targetDay" validate:"required"`
	TargetPeriod  int    `json:"targetPeriod" validate:"required,min=1,max=8"`
	RequestedRoom string `json:"requestedRoom" validate:"omitempty,max=40"`
}

// MoveSessionResponse reports the outcome of a move.
type MoveSessionResponse struct {
	Accepted     bool               `json:"accepted"`
	ResolvedRoom string             `json:"resolvedRoom,omitempty"`
	Conflicts    []ConflictResponse `json:"conflicts,omitempty"`
}

// ValidSlotsQuery identifies the session whose validity map is wanted.
type ValidSlotsQuery struct {
	ClassID       string `form:"classId" validate:"required"`
	SessionIndex  int    `form:"sessionIndex" validate:"min=0,max=2"`
	CurrentDay    string `form:"currentDay" validate:"omitempty"`
	CurrentPeriod int    `form:"currentPeriod" validate:"omitempty,min=1,max=8"`
}

// SlotValidityResponse is one cell of the validity map.
type SlotValidityResponse struct {
	Day       string             `json:"day"`
	Period    int                `json:"period"`
	Valid     bool               `json:"valid"`
	Conflicts []ConflictResponse `json:"conflicts,omitempty"`
}

// ValidSlotsResponse covers every day and period combination.
type ValidSlotsResponse struct {
	Slots []SlotValidityResponse `json:"slots"`
}

// CreateExportRequest asks for a background export of a schedule.
type CreateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx ics"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	ScheduleID  string              `json:"scheduleId"`
	Format      models.ExportFormat `json:"format"`
	Status      models.ExportStatus `json:"status"`
	DownloadURL string              `json:"downloadUrl,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// ScheduleListQuery filters schedule listings.
type ScheduleListQuery struct {
	RosterID string `form:"rosterId" validate:"omitempty,uuid"`
	Status   string `form:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"limit" validate:"omitempty,min=1,max=100"`
}
