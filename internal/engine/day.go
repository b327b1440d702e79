package engine

import (
	"fmt"
	"strings"
)

// Day is a school weekday. The zero value means "no day".
type Day int

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

// Weekdays lists the scheduling days in grid order.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayNames = map[Day]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
}

func (d Day) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Day(%d)", int(d))
}

// Valid reports whether d is one of the five scheduling days.
func (d Day) Valid() bool {
	_, ok := dayNames[d]
	return ok
}

// ParseDay accepts full weekday names and three-letter abbreviations,
// case-insensitively.
func ParseDay(value string) (Day, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for day, name := range dayNames {
		lower := strings.ToLower(name)
		if normalized == lower || normalized == lower[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", value)
}

// MarshalText renders the full weekday name.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Period is a teaching period within a school day, numbered 1 through 8.
// The zero value means "no period".
type Period int

const (
	// FirstPeriod through LastPeriod bound the daily grid.
	FirstPeriod Period = 1
	LastPeriod  Period = 8

	// AssemblyPeriod is held for the all-school chapel assembly and is
	// never searched automatically.
	AssemblyPeriod Period = 3
)

// Valid reports whether p falls inside the daily grid.
func (p Period) Valid() bool {
	return p >= FirstPeriod && p <= LastPeriod
}

func (p Period) String() string {
	return fmt.Sprintf("Period %d", int(p))
}

// Slot addresses one cell of the weekly grid.
type Slot struct {
	Day    Day
	Period Period
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s", s.Day, s.Period)
}

// periodTier buckets periods by how willingly the search uses them.
type periodTier int

const (
	tierCore periodTier = iota
	tierEarly
	tierExtended
	tierSpecialty
	tierAssembly
)

var (
	corePeriods     = []Period{2, 4, 5, 6}
	earlyPeriods    = []Period{1}
	extendedPeriods = []Period{7}
)

func tierOf(p Period) periodTier {
	switch p {
	case 2, 4, 5, 6:
		return tierCore
	case 1:
		return tierEarly
	case 7:
		return tierExtended
	case 8:
		return tierSpecialty
	default:
		return tierAssembly
	}
}
