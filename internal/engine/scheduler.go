// Package engine implements the weekly timetable placement engine: session
// frequency and day-pattern derivation, room categorization, conflict
// detection, manual constraint resolution, the greedy multi-tier placement
// search, the multi-approach orchestrator, and the interactive move
// validator.
//
// The engine does no I/O and keeps no state between runs; every call
// builds its own Timetable from the caller's class list and constraints.
package engine

import "sync"

// Defaults for scheduler knobs left unset in Config.
const (
	DefaultChapelCapacity      = 40
	DefaultMaxUnplacedFraction = 0.10
)

// Config carries the scheduler knobs.
type Config struct {
	// ChapelCapacity is the enrollment above which a class needs the chapel.
	ChapelCapacity int
	// MaxUnplacedFraction bounds how many classes may stay unplaced before
	// a partial result counts as a failure.
	MaxUnplacedFraction float64
	// Weights overrides the scoring tables; nil selects DefaultWeights.
	Weights *Weights
}

// Scheduler runs scheduling requests. It is immutable after construction
// and safe for concurrent use.
type Scheduler struct {
	chapelCapacity      int
	maxUnplacedFraction float64
	weights             Weights
}

// NewScheduler builds a scheduler, filling unset config fields with
// defaults.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.ChapelCapacity <= 0 {
		cfg.ChapelCapacity = DefaultChapelCapacity
	}
	if cfg.MaxUnplacedFraction <= 0 {
		cfg.MaxUnplacedFraction = DefaultMaxUnplacedFraction
	}
	weights := DefaultWeights()
	if cfg.Weights != nil {
		weights = *cfg.Weights
	}
	return &Scheduler{
		chapelCapacity:      cfg.ChapelCapacity,
		maxUnplacedFraction: cfg.MaxUnplacedFraction,
		weights:             weights,
	}
}

// Request is one scheduling run's input. Classes and constraints are owned
// by the caller and read-only for the duration of the run.
type Request struct {
	Classes       []*ClassSection
	Constraints   map[string]map[int]SessionConstraint
	RoomOverrides map[string]Room
	// AllowExtendedPeriods admits the late extended period as a last
	// resort.
	AllowExtendedPeriods bool
}

// Solution is a finished scheduling attempt: the materialized timetable
// plus its diagnostics, scored and labeled by the approach that built it.
type Solution struct {
	Timetable      *Timetable
	Approach       string
	Score          int
	Unplaced       []UnplacedRecord
	RejectedPins   []RejectedPin
	PlacedSessions int
	TotalSessions  int
}

// Complete reports whether the search placed every class. Rejected pins do
// not count against completeness: they are caller-supplied constraints that
// could never hold, reported alongside the result.
func (s *Solution) Complete() bool {
	return len(s.Unplaced) == 0
}

// approachConfig is one orchestrator configuration.
type approachConfig struct {
	name     string
	extended bool
	strict   bool
}

func (c approachConfig) fallbackWeights(w Weights) FallbackWeights {
	if c.strict {
		return w.StrictFallback
	}
	return w.RelaxedFallback
}

// approachSequence lists the configurations in the order they are tried,
// ending with the most permissive one available.
func approachSequence(allowExtended bool) []approachConfig {
	sequence := []approachConfig{
		{name: "core-strict", strict: true},
		{name: "core-relaxed"},
	}
	if allowExtended {
		sequence = append(sequence,
			approachConfig{name: "extended-strict", extended: true, strict: true},
			approachConfig{name: "extended-relaxed", extended: true},
		)
	}
	return sequence
}

// Schedule runs the full pipeline: validate frequencies, then run the
// resolver and search under every approach configuration, score the
// results, and pick the best complete solution. When no approach places
// everything, the attempt with the fewest unplaced classes is returned as a
// partial solution if it stays inside MaxUnplacedFraction; otherwise the
// run fails with the full unplaced list.
func (s *Scheduler) Schedule(req Request) (*Solution, error) {
	frequencies := make(map[string]int, len(req.Classes))
	totalSessions := 0
	for _, class := range req.Classes {
		frequency, err := classFrequency(class)
		if err != nil {
			return nil, err
		}
		frequencies[class.ID] = frequency
		totalSessions += frequency
	}

	approaches := approachSequence(req.AllowExtendedPeriods)
	solutions := make([]*Solution, len(approaches))

	// Approaches share no mutable state: each builds its own timetable.
	var wg sync.WaitGroup
	for i, cfg := range approaches {
		wg.Add(1)
		go func(i int, cfg approachConfig) {
			defer wg.Done()
			solutions[i] = s.runApproach(req, frequencies, totalSessions, cfg)
		}(i, cfg)
	}
	wg.Wait()

	var bestComplete, bestPartial *Solution
	for _, solution := range solutions {
		if solution.Complete() {
			if bestComplete == nil || solution.Score > bestComplete.Score {
				bestComplete = solution
			}
			continue
		}
		if bestPartial == nil || fewerUnplaced(solution, bestPartial) {
			bestPartial = solution
		}
	}
	if bestComplete != nil {
		return bestComplete, nil
	}

	unplacedClasses := len(bestPartial.Unplaced)
	if float64(unplacedClasses) <= s.maxUnplacedFraction*float64(len(req.Classes)) {
		return bestPartial, nil
	}
	return nil, &IncompleteScheduleError{
		Unplaced:       bestPartial.Unplaced,
		PlacedSessions: bestPartial.PlacedSessions,
		TotalSessions:  bestPartial.TotalSessions,
	}
}

func (s *Scheduler) runApproach(req Request, frequencies map[string]int, totalSessions int, cfg approachConfig) *Solution {
	tt := NewTimetable()
	resolved := s.resolveManual(tt, req.Classes, frequencies, req, cfg.extended)
	placed, unplaced := s.runSearch(tt, resolved.pending, cfg)

	solution := &Solution{
		Timetable:      tt,
		Approach:       cfg.name,
		Unplaced:       unplaced,
		RejectedPins:   resolved.rejected,
		PlacedSessions: resolved.placed + placed,
		TotalSessions:  totalSessions,
	}
	solution.Score = s.scoreTimetable(tt)
	return solution
}

func (s *Scheduler) scoreTimetable(tt *Timetable) int {
	score := 0
	for _, session := range tt.grid.Sessions() {
		score += s.weights.Approach.sessionScore(session.Period)
	}
	return score
}

func fewerUnplaced(a, b *Solution) bool {
	if len(a.Unplaced) != len(b.Unplaced) {
		return len(a.Unplaced) < len(b.Unplaced)
	}
	return a.Score > b.Score
}
