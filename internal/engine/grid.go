package engine

import "sort"

// Grid maps each (day, period) cell to the sessions meeting there.
//
// Invariant for every cell: no two sessions share a teacher, no two
// sessions' student sets intersect, and no two sessions occupy the same
// concrete room.
type Grid struct {
	cells map[Slot][]*Session
}

// NewGrid returns an empty weekly grid.
func NewGrid() *Grid {
	return &Grid{cells: make(map[Slot][]*Session)}
}

// At returns the sessions in one cell. The returned slice is a copy; the
// grid is only mutated through placement and moves.
func (g *Grid) At(day Day, period Period) []*Session {
	cell := g.cells[Slot{Day: day, Period: period}]
	if len(cell) == 0 {
		return nil
	}
	out := make([]*Session, len(cell))
	copy(out, cell)
	return out
}

// Sessions returns every placed session ordered by day, period, class and
// session index.
func (g *Grid) Sessions() []*Session {
	var all []*Session
	for _, cell := range g.cells {
		all = append(all, cell...)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Class.ID != b.Class.ID {
			return a.Class.ID < b.Class.ID
		}
		return a.Index < b.Index
	})
	return all
}

// Find locates a session by class and session index.
func (g *Grid) Find(classID string, index int) (*Session, bool) {
	for _, cell := range g.cells {
		for _, session := range cell {
			if session.Class.ID == classID && session.Index == index {
				return session, true
			}
		}
	}
	return nil, false
}

func (g *Grid) place(session *Session) {
	slot := session.Slot()
	g.cells[slot] = append(g.cells[slot], session)
}

func (g *Grid) remove(session *Session) bool {
	slot := session.Slot()
	cell := g.cells[slot]
	for i, occupant := range cell {
		if occupant == session {
			g.cells[slot] = append(cell[:i:i], cell[i+1:]...)
			if len(g.cells[slot]) == 0 {
				delete(g.cells, slot)
			}
			return true
		}
	}
	return false
}

// Timetable is a materialized grid plus its room ledger: the unit a
// scheduling run produces and interactive moves operate on.
type Timetable struct {
	grid   *Grid
	ledger *RoomLedger
}

// NewTimetable returns an empty timetable.
func NewTimetable() *Timetable {
	return &Timetable{grid: NewGrid(), ledger: NewRoomLedger()}
}

// RestoreTimetable rebuilds a timetable from previously placed sessions,
// for example rows loaded from storage. Sessions are trusted as-is: they
// were validated when first placed.
func RestoreTimetable(sessions []*Session) *Timetable {
	tt := NewTimetable()
	for _, session := range sessions {
		tt.place(session)
	}
	return tt
}

// Grid exposes the underlying weekly grid.
func (t *Timetable) Grid() *Grid {
	return t.grid
}

// Ledger exposes the room occupancy ledger.
func (t *Timetable) Ledger() *RoomLedger {
	return t.ledger
}

// place commits a session to the grid and its room to the ledger.
func (t *Timetable) place(session *Session) {
	t.grid.place(session)
	if session.Room != "" {
		t.ledger.reserve(session.Slot(), session.Room, session.Class.ID)
	}
}
