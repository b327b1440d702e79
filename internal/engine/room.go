package engine

import (
	"fmt"
	"strings"
)

// Room identifies a concrete teaching room.
type Room string

const (
	RoomComputerLab Room = "computer_lab"
	RoomChapel      Room = "chapel"
	RoomClassroom2  Room = "classroom_2"
	RoomClassroom4  Room = "classroom_4"
	RoomClassroom5  Room = "classroom_5"
	RoomClassroom6  Room = "classroom_6"
)

// poolRooms are the interchangeable regular classrooms, tried in this fixed
// order when any of them will do.
var poolRooms = []Room{RoomClassroom2, RoomClassroom4, RoomClassroom5, RoomClassroom6}

var roomLabels = map[Room]string{
	RoomComputerLab: "Computer Lab",
	RoomChapel:      "Chapel",
	RoomClassroom2:  "Classroom 2",
	RoomClassroom4:  "Classroom 4",
	RoomClassroom5:  "Classroom 5",
	RoomClassroom6:  "Classroom 6",
}

// Rooms lists every known room in display order.
func Rooms() []Room {
	return []Room{
		RoomComputerLab,
		RoomChapel,
		RoomClassroom2,
		RoomClassroom4,
		RoomClassroom5,
		RoomClassroom6,
	}
}

// Label returns the display name for the room.
func (r Room) Label() string {
	if label, ok := roomLabels[r]; ok {
		return label
	}
	return string(r)
}

// Known reports whether r is one of the building's rooms.
func (r Room) Known() bool {
	_, ok := roomLabels[r]
	return ok
}

// ParseRoom accepts room identifiers ("classroom_2") and display labels
// ("Classroom 2"), case-insensitively.
func ParseRoom(value string) (Room, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	room := Room(normalized)
	if room.Known() {
		return room, nil
	}
	return "", fmt.Errorf("unknown room %q", value)
}

// RoomCategory is the kind of room a class needs.
type RoomCategory uint8

const (
	// CategoryPool accepts any free regular classroom.
	CategoryPool RoomCategory = iota
	// CategoryComputerLab requires the computer lab.
	CategoryComputerLab
	// CategoryChapel requires the chapel hall.
	CategoryChapel
	// CategoryFixed requires one specific named room.
	CategoryFixed
)

func (c RoomCategory) String() string {
	switch c {
	case CategoryComputerLab:
		return "COMPUTER_LAB"
	case CategoryChapel:
		return "CHAPEL"
	case CategoryFixed:
		return "FIXED"
	default:
		return "POOL"
	}
}

// roomNeed is the resolved room requirement of one class.
type roomNeed struct {
	Category RoomCategory
	Fixed    Room
}

// computerCourseMarkers flag computer and ESL courses, which meet in the
// computer lab.
var computerCourseMarkers = []string{"GECO", "GELA"}

func isComputerCourse(category string) bool {
	upper := strings.ToUpper(category)
	for _, marker := range computerCourseMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// roomNeedFor applies the room rules: a manual override wins, then the
// course-category rule, then the enrollment rule, then the pool.
func roomNeedFor(c *ClassSection, overrides map[string]Room, chapelCapacity int) roomNeed {
	if fixed, ok := overrides[c.ID]; ok && fixed != "" {
		return roomNeed{Category: CategoryFixed, Fixed: fixed}
	}
	if isComputerCourse(c.CourseCategory) {
		return roomNeed{Category: CategoryComputerLab}
	}
	if c.Enrollment() > chapelCapacity {
		return roomNeed{Category: CategoryChapel}
	}
	return roomNeed{Category: CategoryPool}
}

// --- Room ledger ---

type ledgerKey struct {
	Slot Slot
	Room Room
}

// RoomLedger tracks which concrete rooms are taken per slot during one
// scheduling run. It is mutated only while placing.
type RoomLedger struct {
	occupied map[ledgerKey]string
}

// NewRoomLedger returns an empty ledger.
func NewRoomLedger() *RoomLedger {
	return &RoomLedger{occupied: make(map[ledgerKey]string)}
}

// Occupied reports whether room r is taken at the slot, and by which class.
func (l *RoomLedger) Occupied(slot Slot, r Room) (string, bool) {
	classID, ok := l.occupied[ledgerKey{Slot: slot, Room: r}]
	return classID, ok
}

func (l *RoomLedger) reserve(slot Slot, r Room, classID string) {
	l.occupied[ledgerKey{Slot: slot, Room: r}] = classID
}

func (l *RoomLedger) release(slot Slot, r Room) {
	delete(l.occupied, ledgerKey{Slot: slot, Room: r})
}

// resolve finds a concrete free room satisfying the need at the slot. For
// pool needs the four regular classrooms are tried in fixed order.
func (l *RoomLedger) resolve(slot Slot, need roomNeed) (Room, bool) {
	switch need.Category {
	case CategoryFixed:
		if _, taken := l.Occupied(slot, need.Fixed); taken {
			return "", false
		}
		return need.Fixed, true
	case CategoryComputerLab:
		if _, taken := l.Occupied(slot, RoomComputerLab); taken {
			return "", false
		}
		return RoomComputerLab, true
	case CategoryChapel:
		if _, taken := l.Occupied(slot, RoomChapel); taken {
			return "", false
		}
		return RoomChapel, true
	default:
		for _, room := range poolRooms {
			if _, taken := l.Occupied(slot, room); !taken {
				return room, true
			}
		}
		return "", false
	}
}

// conflictFor describes a failed room resolution at the slot.
func (l *RoomLedger) conflictFor(slot Slot, need roomNeed) ConflictDetail {
	detail := ConflictDetail{Kind: ConflictRoom}
	switch need.Category {
	case CategoryFixed:
		detail.Room = need.Fixed
	case CategoryComputerLab:
		detail.Room = RoomComputerLab
	case CategoryChapel:
		detail.Room = RoomChapel
	}
	if detail.Room != "" {
		if classID, taken := l.Occupied(slot, detail.Room); taken {
			detail.ClassID = classID
		}
	}
	return detail
}
