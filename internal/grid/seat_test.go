package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWireRoundTrip(t *testing.T) {
	seats := []Seat{{0, 0}, {0, 5}, {12, 3}, {99, 99}}
	for _, s := range seats {
		assert.Equal(t, s, FromWire(ToWire(s)), "FromWire(ToWire(%v))", s)
	}
	wires := []WireSeat{{1, 1}, {1, 6}, {13, 4}, {100, 100}}
	for _, w := range wires {
		assert.Equal(t, w, ToWire(FromWire(w)), "ToWire(FromWire(%v))", w)
	}
}

func TestWireOffset(t *testing.T) {
	// The wire origin (1,1) is the internal origin (0,0).
	assert.Equal(t, Seat{0, 0}, FromWire(WireSeat{1, 1}))
	assert.Equal(t, WireSeat{1, 1}, ToWire(Seat{0, 0}))
}

func TestWireAllPreservesNil(t *testing.T) {
	assert.Nil(t, FromWireAll(nil))
	assert.Nil(t, ToWireAll(nil))

	got := FromWireAll([]WireSeat{{2, 3}, {4, 5}})
	assert.Equal(t, []Seat{{1, 2}, {3, 4}}, got)
	assert.Equal(t, []WireSeat{{2, 3}, {4, 5}}, ToWireAll(got))
}
