package engine

// MoveRequest relocates one placed session to a target slot. Room is an
// optional replacement; when empty the session keeps its resolved room.
type MoveRequest struct {
	ClassID      string
	SessionIndex int
	From         Slot
	To           Slot
	Room         Room
}

// MoveOutcome reports whether a move is (or was) acceptable and, when
// accepted, the room the session ends up in.
type MoveOutcome struct {
	Accepted     bool
	ResolvedRoom Room
	Conflicts    []ConflictDetail
}

// SlotValidity is one cell of the validity map for a session being moved.
type SlotValidity struct {
	Slot      Slot
	Valid     bool
	Conflicts []ConflictDetail
}

// findSession locates the moving session and, when a current slot is given,
// checks the caller's view of the grid is not stale.
func (t *Timetable) findSession(classID string, index int, from Slot) (*Session, error) {
	session, ok := t.grid.Find(classID, index)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if from != (Slot{}) && session.Slot() != from {
		return nil, ErrStaleSession
	}
	return session, nil
}

// slotConflicts tests a target cell against the moving session, excluding
// the moving session itself: another session of the same class, the same
// teacher, or any shared student rejects the cell.
func slotConflicts(grid *Grid, moving *Session, target Slot) []ConflictDetail {
	var details []ConflictDetail
	for _, occupant := range grid.At(target.Day, target.Period) {
		if occupant == moving {
			continue
		}
		if occupant.Class.ID == moving.Class.ID {
			details = append(details, ConflictDetail{
				Kind:    ConflictSameClass,
				ClassID: occupant.Class.ID,
			})
			continue
		}
		details = append(details, Conflicts(moving.Class, occupant.Class)...)
	}
	return details
}

// ValidateMove checks a move without touching the grid.
func (t *Timetable) ValidateMove(req MoveRequest) (MoveOutcome, error) {
	session, err := t.findSession(req.ClassID, req.SessionIndex, req.From)
	if err != nil {
		return MoveOutcome{}, err
	}
	conflicts := slotConflicts(t.grid, session, req.To)
	room := session.Room
	if req.Room != "" {
		room = req.Room
	}
	return MoveOutcome{
		Accepted:     len(conflicts) == 0,
		ResolvedRoom: room,
		Conflicts:    conflicts,
	}, nil
}

// ValidSlots computes the full validity map for a session over every
// (day, period) cell. Read-only: two calls on an unchanged grid return
// identical maps.
func (t *Timetable) ValidSlots(classID string, index int, from Slot) ([]SlotValidity, error) {
	session, err := t.findSession(classID, index, from)
	if err != nil {
		return nil, err
	}
	slots := make([]SlotValidity, 0, len(Weekdays)*int(LastPeriod))
	for _, day := range Weekdays {
		for period := FirstPeriod; period <= LastPeriod; period++ {
			target := Slot{Day: day, Period: period}
			conflicts := slotConflicts(t.grid, session, target)
			slots = append(slots, SlotValidity{
				Slot:      target,
				Valid:     len(conflicts) == 0,
				Conflicts: conflicts,
			})
		}
	}
	return slots, nil
}

// ApplyMove re-validates the move against the current grid and, while still
// valid, commits it: the session leaves its old cell, keeps its room unless
// a replacement was supplied, and the ledger follows. A target that stopped
// being valid since the caller checked leaves the grid unchanged.
func (t *Timetable) ApplyMove(req MoveRequest) (MoveOutcome, error) {
	session, err := t.findSession(req.ClassID, req.SessionIndex, req.From)
	if err != nil {
		return MoveOutcome{}, err
	}

	room := session.Room
	if req.Room != "" {
		room = req.Room
	}
	if req.To == session.Slot() && room == session.Room {
		return MoveOutcome{Accepted: true, ResolvedRoom: room}, nil
	}

	conflicts := slotConflicts(t.grid, session, req.To)
	if len(conflicts) == 0 && room != "" {
		if classID, taken := t.ledger.Occupied(req.To, room); taken {
			conflicts = append(conflicts, ConflictDetail{
				Kind:    ConflictRoom,
				ClassID: classID,
				Room:    room,
			})
		}
	}
	if len(conflicts) > 0 {
		return MoveOutcome{Accepted: false, Conflicts: conflicts}, nil
	}

	previous := session.Slot()
	t.grid.remove(session)
	if session.Room != "" {
		t.ledger.release(previous, session.Room)
	}
	session.Day = req.To.Day
	session.Period = req.To.Period
	session.Room = room
	t.place(session)
	return MoveOutcome{Accepted: true, ResolvedRoom: room}, nil
}
