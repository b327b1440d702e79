package engine

import (
	"errors"
	"fmt"
)

// InvalidCreditUnitsError reports a class whose credit units map to no known
// weekly frequency. It aborts the run: malformed credit data is never
// silently defaulted.
type InvalidCreditUnitsError struct {
	ClassID string
	Units   int
}

func (e *InvalidCreditUnitsError) Error() string {
	if e.ClassID == "" {
		return fmt.Sprintf("invalid credit units %d: expected 4, 8 or 12", e.Units)
	}
	return fmt.Sprintf("class %s: invalid credit units %d: expected 4, 8 or 12", e.ClassID, e.Units)
}

// IncompleteScheduleError reports a run whose best attempt left more classes
// unplaced than the acceptance threshold allows.
type IncompleteScheduleError struct {
	Unplaced       []UnplacedRecord
	PlacedSessions int
	TotalSessions  int
}

func (e *IncompleteScheduleError) Error() string {
	return fmt.Sprintf("schedule incomplete: %d classes unplaced (%d/%d sessions placed)",
		len(e.Unplaced), e.PlacedSessions, e.TotalSessions)
}

var (
	// ErrSessionNotFound reports a move request naming a session the grid
	// does not hold.
	ErrSessionNotFound = errors.New("session not found on grid")
	// ErrStaleSession reports a move request whose current-slot reference
	// no longer matches the grid.
	ErrStaleSession = errors.New("session is no longer at the given slot")
)
