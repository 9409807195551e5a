package stream

import (
	"fmt"
	"strings"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
)

// Notifier receives user-visible, non-blocking notices: conflict evictions,
// hold expiry, terminal stream closure.  Implementations must not block;
// the booking flow calls them while holding its serialization lock.
type Notifier interface {
	Notify(message string)
}

// Channel reconciles availability events into a Grid and raises conflict
// notices when authoritative state evicts locally selected seats.  The
// pending/reserved mirrors live inside the Grid itself; Channel owns the
// merge arithmetic per action.
//
// Channel performs no locking.  The owning flow serializes calls to
// ApplySnapshot/ApplyUpdate against user input, so each event lands as one
// atomic mutation.
type Channel struct {
	grid     *grid.Grid
	notifier Notifier
}

// NewChannel wires a reconciler to a grid and a notifier.
func NewChannel(g *grid.Grid, n Notifier) *Channel {
	return &Channel{grid: g, notifier: n}
}

// ApplySnapshot replaces both availability sets wholesale.
func (c *Channel) ApplySnapshot(s Snapshot) {
	evicted := c.grid.ReplaceAvailability(grid.FromWireAll(s.Pending), grid.FromWireAll(s.Reserved))
	c.notifyEvicted(evicted)
}

// ApplyUpdate merges one incremental event.  Unknown actions are ignored:
// a newer server may emit event types this client does not know, and
// dropping them is safer than guessing.
func (c *Channel) ApplyUpdate(u Update) {
	seats := grid.FromWireAll(u.Seats)
	var evicted []grid.Seat
	switch u.Action {
	case ActionOccupied:
		evicted = c.grid.MergeAvailability(seats, nil, nil)
	case ActionConfirmed:
		evicted = c.grid.MergeAvailability(nil, seats, nil)
	case ActionReleased:
		evicted = c.grid.MergeAvailability(nil, nil, seats)
	default:
		return
	}
	c.notifyEvicted(evicted)
}

// Closed surfaces a terminal stream closure.  The grid freezes at its last
// known state; no repair is attempted here.
func (c *Channel) Closed(err error) {
	if err != nil {
		c.notifier.Notify(fmt.Sprintf("live seat updates stopped (%v); availability shown may be stale", err))
		return
	}
	c.notifier.Notify("live seat updates stopped; availability shown may be stale")
}

// notifyEvicted raises exactly one notice per eviction batch, naming every
// affected coordinate.  No retry, no automatic re-selection: the user
// re-picks by hand.
func (c *Channel) notifyEvicted(evicted []grid.Seat) {
	if len(evicted) == 0 {
		return
	}
	names := make([]string, 0, len(evicted))
	for _, s := range evicted {
		names = append(names, s.String())
	}
	if len(evicted) == 1 {
		c.notifier.Notify(fmt.Sprintf("seat %s was just taken by another user and has been removed from your selection", names[0]))
		return
	}
	c.notifier.Notify(fmt.Sprintf("seats %s were just taken by another user and have been removed from your selection", strings.Join(names, ", ")))
}
