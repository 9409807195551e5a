package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
)

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(msg string) { r.messages = append(r.messages, msg) }

func newTestChannel() (*Channel, *grid.Grid, *recordingNotifier) {
	g := grid.New(grid.Layout{
		Rows:      4,
		Cols:      4,
		SeatTypes: map[string]grid.SeatType{"STANDARD": {Label: "Standard", PriceCents: 5000}},
		Grades:    []grid.GradeRange{{Grade: "STANDARD", FromRow: 0, ToRow: 3}},
	})
	n := &recordingNotifier{}
	return NewChannel(g, n), g, n
}

func TestSnapshotReplacesMirrors(t *testing.T) {
	c, g, _ := newTestChannel()

	c.ApplyUpdate(Update{Action: ActionOccupied, Seats: []grid.WireSeat{{Row: 1, Col: 1}}})
	assert.Equal(t, []grid.Seat{{Row: 0, Col: 0}}, g.PendingSeats())

	c.ApplySnapshot(Snapshot{Pending: []grid.WireSeat{{Row: 2, Col: 2}}})
	assert.Equal(t, []grid.Seat{{Row: 1, Col: 1}}, g.PendingSeats(), "snapshot replaces the pending mirror wholesale")

	c.ApplyUpdate(Update{Action: ActionOccupied, Seats: []grid.WireSeat{{Row: 3, Col: 3}}})
	assert.Equal(t, []grid.Seat{{Row: 1, Col: 1}, {Row: 2, Col: 2}}, g.PendingSeats(), "updates merge")
}

func TestConflictEvictionNotifiesOncePerBatch(t *testing.T) {
	c, g, n := newTestChannel()

	// Local selection on internal (0,0) and (0,1).
	require.True(t, g.Toggle(grid.Seat{Row: 0, Col: 0}))
	require.True(t, g.Toggle(grid.Seat{Row: 0, Col: 1}))

	// Wire (1,1) is internal (0,0).
	c.ApplyUpdate(Update{Action: ActionOccupied, Seats: []grid.WireSeat{{Row: 1, Col: 1}}})

	assert.Equal(t, []grid.Seat{{Row: 0, Col: 1}}, g.Selected())
	assert.Equal(t, []grid.Seat{{Row: 0, Col: 0}}, g.PendingSeats())
	require.Len(t, n.messages, 1, "one notice per batch, not per seat")
	assert.Contains(t, n.messages[0], "(0, 0)")
}

func TestMultiSeatEvictionSingleNotice(t *testing.T) {
	c, g, n := newTestChannel()
	require.True(t, g.Toggle(grid.Seat{Row: 1, Col: 0}))
	require.True(t, g.Toggle(grid.Seat{Row: 1, Col: 1}))

	c.ApplySnapshot(Snapshot{Reserved: []grid.WireSeat{{Row: 2, Col: 1}, {Row: 2, Col: 2}}})

	assert.Empty(t, g.Selected())
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "(1, 0)")
	assert.Contains(t, n.messages[0], "(1, 1)")
}

func TestReleasedNeverEvictsReserved(t *testing.T) {
	c, g, _ := newTestChannel()

	c.ApplyUpdate(Update{Action: ActionConfirmed, Seats: []grid.WireSeat{{Row: 1, Col: 2}}})
	c.ApplyUpdate(Update{Action: ActionReleased, Seats: []grid.WireSeat{{Row: 1, Col: 2}}})

	assert.Equal(t, []grid.Seat{{Row: 0, Col: 1}}, g.ReservedSeats())
}

func TestUnknownActionIgnored(t *testing.T) {
	c, g, n := newTestChannel()
	c.ApplyUpdate(Update{Action: Action("REPRICED"), Seats: []grid.WireSeat{{Row: 1, Col: 1}}})
	assert.Empty(t, g.PendingSeats())
	assert.Empty(t, n.messages)
}

func TestClosedRaisesNotice(t *testing.T) {
	c, _, n := newTestChannel()
	c.Closed(errors.New("unexpected EOF"))
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "stale")
}
