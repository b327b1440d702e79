package engine

import "fmt"

// ConstraintKind discriminates the SessionConstraint variants.
type ConstraintKind uint8

const (
	// ConstraintUnset leaves the session entirely to the search.
	ConstraintUnset ConstraintKind = iota
	// ConstraintDay fixes the day, leaving the period to a directed search.
	ConstraintDay
	// ConstraintPeriod fixes the period, leaving the day to a directed search.
	ConstraintPeriod
	// ConstraintDayPeriod pins the slot; the room is resolved automatically.
	ConstraintDayPeriod
	// ConstraintRoom records a room preference without pinning a slot.
	ConstraintRoom
	// ConstraintFull pins slot and room.
	ConstraintFull
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnset:
		return "UNSET"
	case ConstraintDay:
		return "DAY"
	case ConstraintPeriod:
		return "PERIOD"
	case ConstraintDayPeriod:
		return "DAY_PERIOD"
	case ConstraintRoom:
		return "ROOM"
	case ConstraintFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// SessionConstraint is a caller-supplied manual placement directive for one
// session of one class. The zero value is Unset. Constraints are never
// mutated by the engine.
type SessionConstraint struct {
	Kind   ConstraintKind
	Day    Day
	Period Period
	Room   Room
}

// Unset returns the no-op constraint.
func Unset() SessionConstraint {
	return SessionConstraint{}
}

// OnDay pins the session to a day, any feasible period.
func OnDay(d Day) SessionConstraint {
	return SessionConstraint{Kind: ConstraintDay, Day: d}
}

// AtPeriod pins the session to a period, any feasible day.
func AtPeriod(p Period) SessionConstraint {
	return SessionConstraint{Kind: ConstraintPeriod, Period: p}
}

// At pins the session to an exact slot.
func At(d Day, p Period) SessionConstraint {
	return SessionConstraint{Kind: ConstraintDayPeriod, Day: d, Period: p}
}

// InRoom records a room preference for the session.
func InRoom(r Room) SessionConstraint {
	return SessionConstraint{Kind: ConstraintRoom, Room: r}
}

// Exact pins slot and room.
func Exact(d Day, p Period, r Room) SessionConstraint {
	return SessionConstraint{Kind: ConstraintFull, Day: d, Period: p, Room: r}
}

// Validate checks internal consistency of the constraint fields.
func (c SessionConstraint) Validate() error {
	switch c.Kind {
	case ConstraintUnset:
		return nil
	case ConstraintDay:
		if !c.Day.Valid() {
			return fmt.Errorf("day constraint: invalid day %d", int(c.Day))
		}
	case ConstraintPeriod:
		if !c.Period.Valid() {
			return fmt.Errorf("period constraint: invalid period %d", int(c.Period))
		}
	case ConstraintDayPeriod:
		if !c.Day.Valid() || !c.Period.Valid() {
			return fmt.Errorf("slot constraint: invalid slot %d/%d", int(c.Day), int(c.Period))
		}
	case ConstraintRoom:
		if c.Room == "" {
			return fmt.Errorf("room constraint: empty room")
		}
	case ConstraintFull:
		if !c.Day.Valid() || !c.Period.Valid() || c.Room == "" {
			return fmt.Errorf("full constraint: incomplete slot or room")
		}
	default:
		return fmt.Errorf("unknown constraint kind %d", uint8(c.Kind))
	}
	return nil
}

func (c SessionConstraint) String() string {
	switch c.Kind {
	case ConstraintDay:
		return fmt.Sprintf("on %s", c.Day)
	case ConstraintPeriod:
		return fmt.Sprintf("at %s", c.Period)
	case ConstraintDayPeriod:
		return fmt.Sprintf("at %s %s", c.Day, c.Period)
	case ConstraintRoom:
		return fmt.Sprintf("in %s", c.Room.Label())
	case ConstraintFull:
		return fmt.Sprintf("at %s %s in %s", c.Day, c.Period, c.Room.Label())
	default:
		return "unset"
	}
}
