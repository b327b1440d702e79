package dto

import (
	"github.com/veritas-edu/class-scheduler/internal/models"
	"github.com/veritas-edu/class-scheduler/pkg/colors"
)

// RosterImportRequest names an uploaded class list. The file itself
// arrives as multipart form data under the "file" key.
type RosterImportRequest struct {
	Name string `form:"name" validate:"omitempty,max=120"`
}

// RosterClassSummary is one class row of an import response.
type RosterClassSummary struct {
	ClassID        string `json:"classId"`
	Teacher        string `json:"teacher"`
	CourseCategory string `json:"courseCategory,omitempty"`
	CreditUnits    int    `json:"creditUnits"`
	StudentCount   int    `json:"studentCount"`
	Selected       bool   `json:"selected"`
	RoomOverride   string `json:"roomOverride,omitempty"`
}

// RosterImportResponse is returned after a class list upload.
type RosterImportResponse struct {
	RosterID     string               `json:"rosterId"`
	Name         string               `json:"name"`
	ClassesFound int                  `json:"classesFound"`
	Classes      []RosterClassSummary `json:"classes"`
}

// RosterResponse summarises a stored roster.
type RosterResponse struct {
	Roster  models.Roster          `json:"roster"`
	Classes []RosterClassSummary   `json:"classes,omitempty"`
	Colors  map[string]colors.Pair `json:"colors,omitempty"`
}

// UpdateClassRequest adjusts selection or the manual room of one class.
type UpdateClassRequest struct {
	Selected     *bool   `json:"selected"`
	RoomOverride *string `json:"roomOverride" validate:"omitempty,max=40"`
}
