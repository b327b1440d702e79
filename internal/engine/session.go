package engine

// ClassSection is one schedulable class as supplied by the caller. Student
// lists arrive de-duplicated and trimmed; the engine treats sections as
// read-only for the duration of a run.
type ClassSection struct {
	ID             string
	Teacher        string
	CourseCategory string
	CreditUnits    int
	Students       []string
}

// Enrollment returns the number of enrolled students.
func (c *ClassSection) Enrollment() int {
	return len(c.Students)
}

// Frequency maps credit units onto weekly meeting counts. Units outside
// {4, 8, 12} are malformed data and never silently defaulted.
func Frequency(units int) (int, error) {
	switch units {
	case 4:
		return 1, nil
	case 8:
		return 2, nil
	case 12:
		return 3, nil
	}
	return 0, &InvalidCreditUnitsError{Units: units}
}

func classFrequency(c *ClassSection) (int, error) {
	freq, err := Frequency(c.CreditUnits)
	if err != nil {
		return 0, &InvalidCreditUnitsError{ClassID: c.ID, Units: c.CreditUnits}
	}
	return freq, nil
}

// SessionState tracks how a session ended up on the grid.
type SessionState uint8

const (
	// SessionPinned marks a placement dictated by a manual constraint.
	SessionPinned SessionState = iota + 1
	// SessionAutoPlaced marks a placement chosen by the search.
	SessionAutoPlaced
)

func (s SessionState) String() string {
	switch s {
	case SessionPinned:
		return "PINNED"
	case SessionAutoPlaced:
		return "AUTO"
	default:
		return "UNKNOWN"
	}
}

// Session is one weekly meeting-instance of a class placed at a concrete
// (day, period, room).
type Session struct {
	Class  *ClassSection
	Index  int
	Day    Day
	Period Period
	Room   Room
	State  SessionState
}

// Slot returns the grid cell this session occupies.
func (s *Session) Slot() Slot {
	return Slot{Day: s.Day, Period: s.Period}
}

// --- Day-pattern preferences ---

// dayPatterns returns the ordered day combinations for a weekly frequency,
// most preferred first.
func dayPatterns(frequency int) [][]Day {
	switch frequency {
	case 1:
		return [][]Day{
			{Monday}, {Tuesday}, {Wednesday}, {Thursday}, {Friday},
		}
	case 2:
		return [][]Day{
			{Tuesday, Thursday},
			{Monday, Wednesday},
			{Monday, Friday},
			{Wednesday, Friday},
			{Monday, Tuesday},
			{Tuesday, Wednesday},
			{Wednesday, Thursday},
		}
	case 3:
		return [][]Day{
			{Monday, Wednesday, Friday},
			{Monday, Tuesday, Thursday},
			{Tuesday, Wednesday, Friday},
			{Monday, Tuesday, Wednesday},
			{Tuesday, Wednesday, Thursday},
			{Wednesday, Thursday, Friday},
		}
	}
	return nil
}

// patternOptions returns the ordered day combinations available for a
// class's remaining sessions. With pins present, the options are
// completions: each recognized pattern over the live sessions (pinned plus
// remaining) that contains every pinned day, minus the pinned days
// themselves. When no recognized pattern fits the pins, the preference list
// for the remaining count applies, skipping combinations that touch a
// pinned day.
func patternOptions(remaining int, pinned []Day) [][]Day {
	if remaining <= 0 {
		return nil
	}
	if len(pinned) == 0 {
		return dayPatterns(remaining)
	}

	var completions [][]Day
	for _, pattern := range dayPatterns(remaining + len(pinned)) {
		if !containsAllDays(pattern, pinned) {
			continue
		}
		completion := subtractDays(pattern, pinned)
		// Two pins on the same day leave the completion too long for the
		// remaining session count.
		if len(completion) != remaining {
			continue
		}
		completions = append(completions, completion)
	}
	if len(completions) > 0 {
		return completions
	}

	var fallback [][]Day
	for _, pattern := range dayPatterns(remaining) {
		option := subtractDays(pattern, pinned)
		if len(option) != remaining {
			continue
		}
		fallback = append(fallback, option)
	}
	return fallback
}

func containsAllDays(pattern, wanted []Day) bool {
	for _, day := range wanted {
		found := false
		for _, candidate := range pattern {
			if candidate == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func subtractDays(pattern, removed []Day) []Day {
	var result []Day
	for _, day := range pattern {
		skip := false
		for _, r := range removed {
			if r == day {
				skip = true
				break
			}
		}
		if !skip {
			result = append(result, day)
		}
	}
	return result
}
