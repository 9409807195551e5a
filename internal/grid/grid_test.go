package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() Layout {
	return Layout{
		Rows: 5,
		Cols: 6,
		SeatTypes: map[string]SeatType{
			"VIP":      {Label: "VIP", PriceCents: 15000},
			"STANDARD": {Label: "Standard", PriceCents: 9000},
		},
		Grades: []GradeRange{
			{Grade: "VIP", FromRow: 0, ToRow: 1},
			{Grade: "STANDARD", FromRow: 2, ToRow: 4},
		},
		Disabled: []WireSeat{{5, 6}}, // internal (4,5)
	}
}

func TestLayoutGradeAndPrice(t *testing.T) {
	l := testLayout()

	grade, ok := l.GradeOf(Seat{0, 0})
	require.True(t, ok)
	assert.Equal(t, "VIP", grade)

	grade, ok = l.GradeOf(Seat{4, 5})
	require.True(t, ok)
	assert.Equal(t, "STANDARD", grade)

	_, ok = l.GradeOf(Seat{5, 0})
	assert.False(t, ok, "row outside the layout has no grade")

	price, ok := l.PriceOf(Seat{1, 3})
	require.True(t, ok)
	assert.Equal(t, uint32(15000), price)
}

func TestToggleIdempotent(t *testing.T) {
	g := New(testLayout())
	s := Seat{2, 2}

	require.True(t, g.Toggle(s))
	assert.Equal(t, []Seat{s}, g.Selected())

	require.True(t, g.Toggle(s))
	assert.Empty(t, g.Selected(), "double toggle must restore the original selection")
}

func TestToggleRefusesUnavailableSeats(t *testing.T) {
	g := New(testLayout())
	g.MergeAvailability([]Seat{{1, 1}}, []Seat{{2, 2}}, nil)

	assert.False(t, g.Toggle(Seat{4, 5}), "disabled seat")
	assert.False(t, g.Toggle(Seat{1, 1}), "pending seat")
	assert.False(t, g.Toggle(Seat{2, 2}), "reserved seat")
	assert.False(t, g.Toggle(Seat{9, 9}), "seat outside the layout")
	assert.Empty(t, g.Selected())
}

func TestSnapshotReplacesUpdateMerges(t *testing.T) {
	g := New(testLayout())
	a, b, c := Seat{0, 0}, Seat{1, 1}, Seat{2, 2}

	g.MergeAvailability([]Seat{a}, nil, nil)
	assert.Equal(t, []Seat{a}, g.PendingSeats())

	// Snapshot replaces wholesale: A disappears, B is the whole set.
	g.ReplaceAvailability([]Seat{b}, nil)
	assert.Equal(t, []Seat{b}, g.PendingSeats())

	// Subsequent update merges.
	g.MergeAvailability([]Seat{c}, nil, nil)
	assert.Equal(t, []Seat{b, c}, g.PendingSeats())

	// Release subtracts from pending only.
	g.MergeAvailability(nil, nil, []Seat{b})
	assert.Equal(t, []Seat{c}, g.PendingSeats())
}

func TestReleaseNeverRemovesReserved(t *testing.T) {
	g := New(testLayout())
	s := Seat{3, 3}

	g.MergeAvailability(nil, []Seat{s}, nil)
	g.MergeAvailability(nil, nil, []Seat{s})
	assert.Equal(t, []Seat{s}, g.ReservedSeats(), "a stale RELEASED must not un-confirm a seat")
	assert.Equal(t, StatusReserved, g.Status(s))
}

func TestSelectionInvariantAfterAvailability(t *testing.T) {
	g := New(testLayout())
	require.True(t, g.Toggle(Seat{2, 0}))
	require.True(t, g.Toggle(Seat{2, 1}))
	require.True(t, g.Toggle(Seat{2, 2}))

	evicted := g.MergeAvailability([]Seat{{2, 1}}, []Seat{{2, 2}}, nil)
	assert.Equal(t, []Seat{{2, 1}, {2, 2}}, evicted)
	assert.Equal(t, []Seat{{2, 0}}, g.Selected())

	// Invariant: selection never intersects an unavailable set.
	for _, s := range g.Selected() {
		assert.Equal(t, StatusSelected, g.Status(s))
	}
}

func TestReplaceEvictsSelection(t *testing.T) {
	g := New(testLayout())
	require.True(t, g.Toggle(Seat{0, 0}))

	evicted := g.ReplaceAvailability([]Seat{{0, 0}}, nil)
	assert.Equal(t, []Seat{{0, 0}}, evicted)
	assert.Empty(t, g.Selected())

	// No conflict -> no eviction report.
	assert.Nil(t, g.ReplaceAvailability([]Seat{{0, 0}}, nil))
}

func TestStatusPrecedence(t *testing.T) {
	g := New(testLayout())
	s := Seat{1, 0}

	// A seat that is both pending and reserved renders as reserved.
	g.MergeAvailability([]Seat{s}, []Seat{s}, nil)
	assert.Equal(t, StatusReserved, g.Status(s))
	assert.Equal(t, StatusDisabled, g.Status(Seat{4, 5}))
	assert.Equal(t, StatusFree, g.Status(Seat{3, 0}))
}
