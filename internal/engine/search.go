package engine

import (
	"fmt"
	"sort"
)

// candidate is a feasible placement outside the core tier, remembered while
// the search keeps looking for something better.
type candidate struct {
	period Period
	option []Day
	rooms  map[Day]Room
	score  int
}

// runSearch places every pending class, hardest first. It returns the
// number of sessions placed and a record per class it could not place.
func (s *Scheduler) runSearch(tt *Timetable, pending []*pendingClass, cfg approachConfig) (int, []UnplacedRecord) {
	ordered := make([]*pendingClass, len(pending))
	copy(ordered, pending)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.priorityOf(ordered[i]) > s.priorityOf(ordered[j])
	})

	placed := 0
	var unplaced []UnplacedRecord
	for _, pc := range ordered {
		count, record := s.placeClass(tt, pc, cfg)
		placed += count
		if record != nil {
			unplaced = append(unplaced, *record)
		}
	}
	return placed, unplaced
}

func (s *Scheduler) priorityOf(pc *pendingClass) int {
	return s.weights.Priority.keyFor(pc.class.Enrollment(), pc.frequency, pc.pinnedCount > 0, pc.need.Category)
}

// placeClass walks the period tiers for one class: the manual period hint
// first, then the core periods, then the fallback periods. A feasible hint
// or core slot is committed immediately; fallback slots are only remembered,
// scored, and the best one committed once the core tiers are exhausted.
func (s *Scheduler) placeClass(tt *Timetable, pc *pendingClass, cfg approachConfig) (int, *UnplacedRecord) {
	options := patternOptions(pc.remaining, pc.pinnedDays)
	if len(options) == 0 {
		return 0, &UnplacedRecord{
			ClassID:  pc.class.ID,
			Sessions: pc.remaining,
			Reasons:  []string{"no day pattern fits the pinned days"},
		}
	}

	var reasons []string
	record := func(found []string) {
		for _, reason := range found {
			if len(reasons) >= maxConflictSamples {
				return
			}
			reasons = append(reasons, reason)
		}
	}

	if pc.periodHint.Valid() {
		for _, option := range options {
			rooms, found := s.tryPattern(tt, pc, option, pc.periodHint)
			if found == nil {
				return s.commitPattern(tt, pc, option, pc.periodHint, rooms), nil
			}
			record(found)
		}
	}

	for _, option := range options {
		for _, period := range corePeriods {
			if period == pc.periodHint {
				continue
			}
			rooms, found := s.tryPattern(tt, pc, option, period)
			if found == nil {
				return s.commitPattern(tt, pc, option, period, rooms), nil
			}
			record(found)
		}
	}

	fallback := cfg.fallbackWeights(s.weights)
	var best *candidate
	for index, option := range options {
		for _, period := range fallbackPeriods(cfg.extended) {
			if period == pc.periodHint {
				continue
			}
			rooms, found := s.tryPattern(tt, pc, option, period)
			if found != nil {
				record(found)
				continue
			}
			score := fallback.score(tierOf(period), index)
			if best == nil || score > best.score {
				best = &candidate{period: period, option: option, rooms: rooms, score: score}
			}
		}
	}
	if best != nil {
		return s.commitPattern(tt, pc, best.option, best.period, best.rooms), nil
	}

	return 0, &UnplacedRecord{
		ClassID:  pc.class.ID,
		Sessions: pc.remaining,
		Reasons:  reasons,
	}
}

// tryPattern tests one (day pattern, period) candidate across every day of
// the pattern. It returns the per-day room resolution on success, or the
// reasons the candidate fails. Nothing is reserved until commit.
func (s *Scheduler) tryPattern(tt *Timetable, pc *pendingClass, option []Day, period Period) (map[Day]Room, []string) {
	var reasons []string
	rooms := make(map[Day]Room, len(option))

	need := pc.need
	if pc.roomHint != "" {
		need = roomNeed{Category: CategoryFixed, Fixed: pc.roomHint}
	}

	for _, day := range option {
		slot := Slot{Day: day, Period: period}
		for _, occupant := range tt.grid.At(day, period) {
			for _, detail := range Conflicts(pc.class, occupant.Class) {
				reasons = append(reasons, fmt.Sprintf("%s: %s", slot, detail.Reason()))
			}
		}
		room, ok := tt.ledger.resolve(slot, need)
		if !ok {
			detail := tt.ledger.conflictFor(slot, need)
			reasons = append(reasons, fmt.Sprintf("%s: %s", slot, detail.Reason()))
			continue
		}
		rooms[day] = room
	}

	if len(reasons) > 0 {
		return nil, reasons
	}
	return rooms, nil
}

// commitPattern places the class's remaining sessions on every day of the
// chosen pattern at the chosen period.
func (s *Scheduler) commitPattern(tt *Timetable, pc *pendingClass, option []Day, period Period, rooms map[Day]Room) int {
	for i, day := range option {
		tt.place(&Session{
			Class:  pc.class,
			Index:  pc.freeIndexes[i],
			Day:    day,
			Period: period,
			Room:   rooms[day],
			State:  SessionAutoPlaced,
		})
	}
	return len(option)
}

// fallbackPeriods lists the non-core periods an approach may use.
func fallbackPeriods(extended bool) []Period {
	periods := make([]Period, 0, len(earlyPeriods)+len(extendedPeriods))
	periods = append(periods, earlyPeriods...)
	if extended {
		periods = append(periods, extendedPeriods...)
	}
	return periods
}
