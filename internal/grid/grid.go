package grid

import "sort"

// Seat status values as rendered by consumers.  Reserved takes precedence
// over pending: a confirmed seat is implicitly held forever, so the pending
// set is never consulted for seats that are already reserved.
const (
	StatusFree     = "FREE"
	StatusHeld     = "HELD"
	StatusReserved = "RESERVED"
	StatusDisabled = "DISABLED"
	StatusSelected = "SELECTED"
)

type seatSet map[Seat]struct{}

func newSeatSet(seats []Seat) seatSet {
	set := make(seatSet, len(seats))
	for _, s := range seats {
		set[s] = struct{}{}
	}
	return set
}

func (ss seatSet) has(s Seat) bool {
	_, ok := ss[s]
	return ok
}

// sorted returns the members ordered by row then column, so that eviction
// reports and selection snapshots are deterministic.
func (ss seatSet) sorted() []Seat {
	out := make([]Seat, 0, len(ss))
	for s := range ss {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Grid is the client-side mirror of seat availability for one schedule plus
// the user's local selection.  The disabled set and the layout are fixed at
// construction; reserved and pending are mutated only by availability
// events, and selected only by Toggle and by the eviction pass inside the
// availability methods.
//
// Grid itself is not safe for concurrent use: the owning flow serializes
// every mutation, mirroring the single UI event loop the availability
// protocol was designed for.
type Grid struct {
	layout   Layout
	disabled seatSet
	reserved seatSet
	pending  seatSet
	selected seatSet
}

// New builds a Grid from a static layout.  Disabled seats outside the
// layout bounds are dropped.
func New(layout Layout) *Grid {
	g := &Grid{
		layout:   layout,
		disabled: make(seatSet),
		reserved: make(seatSet),
		pending:  make(seatSet),
		selected: make(seatSet),
	}
	for _, w := range layout.Disabled {
		if s := FromWire(w); layout.Contains(s) {
			g.disabled[s] = struct{}{}
		}
	}
	return g
}

// Layout returns the immutable layout this grid was built from.
func (g *Grid) Layout() *Layout { return &g.layout }

// Selectable reports whether the seat can currently be added to the local
// selection: inside the grid, not disabled, not reserved and not pending.
func (g *Grid) Selectable(s Seat) bool {
	return g.layout.Contains(s) && !g.disabled.has(s) && !g.reserved.has(s) && !g.pending.has(s)
}

// Toggle flips the seat's membership in the local selection.  It is a
// silent no-op (returning false) for seats that are disabled, reserved,
// pending or outside the layout; deselecting an already-selected seat is
// always permitted.
func (g *Grid) Toggle(s Seat) bool {
	if g.selected.has(s) {
		delete(g.selected, s)
		return true
	}
	if !g.Selectable(s) {
		return false
	}
	g.selected[s] = struct{}{}
	return true
}

// Selected returns the current selection sorted by row then column.
func (g *Grid) Selected() []Seat { return g.selected.sorted() }

// SelectedCount returns the size of the current selection.
func (g *Grid) SelectedCount() int { return len(g.selected) }

// Status reports how a seat should be rendered.  Reserved wins over
// pending, and both win over the local selection.
func (g *Grid) Status(s Seat) string {
	switch {
	case g.disabled.has(s):
		return StatusDisabled
	case g.reserved.has(s):
		return StatusReserved
	case g.pending.has(s):
		return StatusHeld
	case g.selected.has(s):
		return StatusSelected
	default:
		return StatusFree
	}
}

// ReplaceAvailability substitutes both availability sets wholesale, as done
// when a stream snapshot arrives, then re-validates the selection invariant
// and returns the seats evicted from the selection, sorted.
func (g *Grid) ReplaceAvailability(pending, reserved []Seat) []Seat {
	g.pending = newSeatSet(pending)
	g.reserved = newSeatSet(reserved)
	return g.evictConflicts()
}

// MergeAvailability applies an incremental update: addPending and
// addReserved are unioned into their sets and removePending is subtracted
// from the pending set.  Reserved seats are never removed here; within one
// stream connection a confirmation is final and only the next snapshot may
// say otherwise.  Returns the seats evicted from the selection, sorted.
func (g *Grid) MergeAvailability(addPending, addReserved, removePending []Seat) []Seat {
	for _, s := range addPending {
		g.pending[s] = struct{}{}
	}
	for _, s := range addReserved {
		g.reserved[s] = struct{}{}
	}
	for _, s := range removePending {
		delete(g.pending, s)
	}
	return g.evictConflicts()
}

// evictConflicts removes any selected seat that the authoritative state now
// marks pending or reserved.  The caller turns the returned batch into a
// single user-visible notice.
func (g *Grid) evictConflicts() []Seat {
	var evicted seatSet
	for s := range g.selected {
		if g.pending.has(s) || g.reserved.has(s) {
			if evicted == nil {
				evicted = make(seatSet)
			}
			evicted[s] = struct{}{}
		}
	}
	if evicted == nil {
		return nil
	}
	for s := range evicted {
		delete(g.selected, s)
	}
	return evicted.sorted()
}

// PendingSeats returns the pending set sorted, for snapshot responses.
func (g *Grid) PendingSeats() []Seat { return g.pending.sorted() }

// ReservedSeats returns the reserved set sorted.
func (g *Grid) ReservedSeats() []Seat { return g.reserved.sorted() }
