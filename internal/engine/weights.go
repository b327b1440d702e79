package engine

// PriorityWeights order classes before placement: harder-to-place classes
// carry larger additive bonuses and are tried first. Enrollment always
// contributes directly on top of these.
type PriorityWeights struct {
	// PinnedPresence applies once when any session of the class is pinned.
	PinnedPresence int
	// ComputerLab applies to computer and ESL courses, which compete for a
	// single lab.
	ComputerLab int
	// LargeClass applies to classes that only fit the chapel.
	LargeClass int
	// PerSession multiplies the weekly frequency.
	PerSession int
}

func (w PriorityWeights) keyFor(enrollment, frequency int, pinned bool, category RoomCategory) int {
	key := enrollment
	if pinned {
		key += w.PinnedPresence
	}
	switch category {
	case CategoryComputerLab:
		key += w.ComputerLab
	case CategoryChapel:
		key += w.LargeClass
	}
	key += frequency * w.PerSession
	return key
}

// FallbackWeights score feasible slots outside the core tier. Two named
// tables express the tier policies: the strict table makes the period tier
// dominate the day-pattern rank, the relaxed table the other way around.
type FallbackWeights struct {
	EarlyPeriod    int
	ExtendedPeriod int
	// PatternStep is subtracted once per step down the day-pattern
	// preference list.
	PatternStep int
}

func (w FallbackWeights) score(tier periodTier, patternIndex int) int {
	base := 0
	switch tier {
	case tierEarly:
		base = w.EarlyPeriod
	case tierExtended:
		base = w.ExtendedPeriod
	}
	return base - patternIndex*w.PatternStep
}

// ApproachWeights score a finished grid by period usage when comparing
// approaches.
type ApproachWeights struct {
	CoreSession      int
	EarlySession     int
	ExtendedSession  int
	SpecialtySession int
}

func (w ApproachWeights) sessionScore(p Period) int {
	switch tierOf(p) {
	case tierCore:
		return w.CoreSession
	case tierEarly:
		return w.EarlySession
	case tierExtended:
		return w.ExtendedSession
	case tierSpecialty:
		return w.SpecialtySession
	default:
		return 0
	}
}

// Weights bundles every scoring table the scheduler consults. Policy lives
// here as data; the search logic never hard-codes a weight.
type Weights struct {
	Priority        PriorityWeights
	StrictFallback  FallbackWeights
	RelaxedFallback FallbackWeights
	Approach        ApproachWeights
}

// DefaultWeights returns the production scoring tables.
func DefaultWeights() Weights {
	return Weights{
		Priority: PriorityWeights{
			PinnedPresence: 1000,
			ComputerLab:    500,
			LargeClass:     400,
			PerSession:     50,
		},
		// Strict ordering: any early-period slot outranks any extended-period
		// slot regardless of day pattern.
		StrictFallback: FallbackWeights{
			EarlyPeriod:    400,
			ExtendedPeriod: 200,
			PatternStep:    10,
		},
		// Relaxed ordering: early and extended form one tier and the day
		// pattern decides first.
		RelaxedFallback: FallbackWeights{
			EarlyPeriod:    40,
			ExtendedPeriod: 30,
			PatternStep:    100,
		},
		Approach: ApproachWeights{
			CoreSession:      10,
			EarlySession:     -2,
			ExtendedSession:  -5,
			SpecialtySession: 2,
		},
	}
}
