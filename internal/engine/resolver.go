package engine

import "sort"

// maxConflictSamples caps how many reasons a diagnostic record keeps.
const maxConflictSamples = 5

// RejectedPin records a manual constraint that could not be honored. Pins
// are never forced and never silently relocated; a rejected session is
// terminal for the run.
type RejectedPin struct {
	ClassID   string
	Index     int
	Day       Day
	Period    Period
	Room      Room
	Conflicts []ConflictDetail
}

// UnplacedRecord reports a class the search could not fully place, with a
// sample of the conflicts that stood in the way.
type UnplacedRecord struct {
	ClassID  string
	Sessions int
	Reasons  []string
}

// pendingClass carries one class through resolution into the search.
type pendingClass struct {
	class       *ClassSection
	frequency   int
	need        roomNeed
	remaining   int
	pinnedCount int
	pinnedDays  []Day
	periodHint  Period
	roomHint    Room
	freeIndexes []int
}

// resolution is the outcome of the manual constraint pass.
type resolution struct {
	pending  []*pendingClass
	rejected []RejectedPin
	placed   int
}

// resolveManual walks every class's session constraints against the empty
// timetable: slot pins are placed or rejected, day-only and period-only
// pins are completed by a directed search, and room-only constraints become
// preferences for the main search.
func (s *Scheduler) resolveManual(tt *Timetable, classes []*ClassSection, frequencies map[string]int, req Request, allowExtended bool) resolution {
	var result resolution

	for _, class := range classes {
		frequency := frequencies[class.ID]
		need := roomNeedFor(class, req.RoomOverrides, s.chapelCapacity)
		constraints := req.Constraints[class.ID]

		pc := &pendingClass{
			class:     class,
			frequency: frequency,
			need:      need,
		}
		// Room preferences apply to every session of the class, including
		// pins resolved below, so collect them first.
		for _, constraint := range constraints {
			if constraint.Kind == ConstraintRoom && constraint.Room != "" {
				pc.roomHint = constraint.Room
				break
			}
		}

		consumed := make(map[int]bool)
		for _, index := range sortedIndexes(constraints) {
			constraint := constraints[index]
			if constraint.Kind == ConstraintUnset || constraint.Kind == ConstraintRoom {
				continue
			}
			if index < 0 || index >= frequency || constraint.Validate() != nil {
				result.rejected = append(result.rejected, RejectedPin{
					ClassID: class.ID,
					Index:   index,
					Day:     constraint.Day,
					Period:  constraint.Period,
					Room:    constraint.Room,
				})
				if index >= 0 && index < frequency {
					consumed[index] = true
				}
				continue
			}

			session, rejected := s.resolvePin(tt, pc, index, constraint, allowExtended)
			consumed[index] = true
			if rejected != nil {
				result.rejected = append(result.rejected, *rejected)
				continue
			}
			tt.place(session)
			result.placed++
			pc.pinnedCount++
			pc.pinnedDays = append(pc.pinnedDays, session.Day)
			if pc.periodHint == 0 {
				pc.periodHint = session.Period
			}
		}

		for index := 0; index < frequency; index++ {
			if !consumed[index] {
				pc.freeIndexes = append(pc.freeIndexes, index)
			}
		}
		pc.remaining = len(pc.freeIndexes)
		if pc.remaining > 0 {
			result.pending = append(result.pending, pc)
		}
	}
	return result
}

// resolvePin places one pinned session or explains why it cannot be placed.
func (s *Scheduler) resolvePin(tt *Timetable, pc *pendingClass, index int, constraint SessionConstraint, allowExtended bool) (*Session, *RejectedPin) {
	switch constraint.Kind {
	case ConstraintFull, ConstraintDayPeriod:
		slot := Slot{Day: constraint.Day, Period: constraint.Period}
		room, conflicts := s.probeSlot(tt, pc, slot, constraint.Room)
		if len(conflicts) > 0 {
			return nil, &RejectedPin{
				ClassID:   pc.class.ID,
				Index:     index,
				Day:       constraint.Day,
				Period:    constraint.Period,
				Room:      constraint.Room,
				Conflicts: conflicts,
			}
		}
		return pinnedSession(pc.class, index, slot, room), nil

	case ConstraintDay:
		var sample []ConflictDetail
		for _, period := range pinSearchPeriods(allowExtended) {
			slot := Slot{Day: constraint.Day, Period: period}
			room, conflicts := s.probeSlot(tt, pc, slot, "")
			if len(conflicts) == 0 {
				return pinnedSession(pc.class, index, slot, room), nil
			}
			sample = appendConflictSample(sample, conflicts)
		}
		return nil, &RejectedPin{
			ClassID:   pc.class.ID,
			Index:     index,
			Day:       constraint.Day,
			Conflicts: sample,
		}

	case ConstraintPeriod:
		var sample []ConflictDetail
		for _, day := range Weekdays {
			slot := Slot{Day: day, Period: constraint.Period}
			room, conflicts := s.probeSlot(tt, pc, slot, "")
			if len(conflicts) == 0 {
				return pinnedSession(pc.class, index, slot, room), nil
			}
			sample = appendConflictSample(sample, conflicts)
		}
		return nil, &RejectedPin{
			ClassID:   pc.class.ID,
			Index:     index,
			Period:    constraint.Period,
			Conflicts: sample,
		}
	}
	return nil, &RejectedPin{ClassID: pc.class.ID, Index: index}
}

// probeSlot tests one slot for the class: collisions with every occupant,
// then a concrete room. An explicit room wins over the class's room hint,
// which wins over the category rule.
func (s *Scheduler) probeSlot(tt *Timetable, pc *pendingClass, slot Slot, explicit Room) (Room, []ConflictDetail) {
	var conflicts []ConflictDetail
	for _, occupant := range tt.grid.At(slot.Day, slot.Period) {
		if occupant.Class.ID == pc.class.ID {
			conflicts = append(conflicts, ConflictDetail{
				Kind:    ConflictSameClass,
				ClassID: occupant.Class.ID,
			})
			continue
		}
		conflicts = append(conflicts, Conflicts(pc.class, occupant.Class)...)
	}

	need := pc.need
	if explicit != "" {
		need = roomNeed{Category: CategoryFixed, Fixed: explicit}
	} else if pc.roomHint != "" {
		need = roomNeed{Category: CategoryFixed, Fixed: pc.roomHint}
	}
	room, ok := tt.ledger.resolve(slot, need)
	if !ok {
		conflicts = append(conflicts, tt.ledger.conflictFor(slot, need))
	}
	if len(conflicts) > 0 {
		return "", conflicts
	}
	return room, nil
}

func pinnedSession(class *ClassSection, index int, slot Slot, room Room) *Session {
	return &Session{
		Class:  class,
		Index:  index,
		Day:    slot.Day,
		Period: slot.Period,
		Room:   room,
		State:  SessionPinned,
	}
}

// pinSearchPeriods is the fixed order a day-only or period-only pin is
// completed in: core periods first, then early, then extended when enabled.
func pinSearchPeriods(allowExtended bool) []Period {
	periods := make([]Period, 0, len(corePeriods)+2)
	periods = append(periods, corePeriods...)
	periods = append(periods, earlyPeriods...)
	if allowExtended {
		periods = append(periods, extendedPeriods...)
	}
	return periods
}

func sortedIndexes(constraints map[int]SessionConstraint) []int {
	indexes := make([]int, 0, len(constraints))
	for index := range constraints {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	return indexes
}

func appendConflictSample(sample, found []ConflictDetail) []ConflictDetail {
	for _, detail := range found {
		if len(sample) >= maxConflictSamples {
			return sample
		}
		sample = append(sample, detail)
	}
	return sample
}
