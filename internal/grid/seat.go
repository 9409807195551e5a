// Package grid models the seat map of a single performance schedule: the
// static layout (rows, columns, seat grades, prices, disabled seats) and the
// four mutable status sets the booking flow cares about (reserved, pending,
// selected, disabled).  Everything in this package uses zero-based
// coordinates; the wire protocol is one-based and must be translated at
// every boundary crossing via FromWire/ToWire.
package grid

import "fmt"

// Seat identifies a single seat by zero-based row and column.  Seats are
// plain values and can be used as map keys.
type Seat struct {
	Row int
	Col int
}

// String renders the seat in the zero-based "(row, col)" form used in
// user-facing conflict notices.
func (s Seat) String() string {
	return fmt.Sprintf("(%d, %d)", s.Row, s.Col)
}

// WireSeat is the one-based coordinate pair carried by every server-facing
// message: SSE payloads, hold requests and hold responses.
type WireSeat struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// FromWire converts a one-based wire coordinate into the internal
// zero-based form.  It must be applied exactly once on every inbound seat
// list; applying it twice (or not at all) silently shifts the whole grid.
func FromWire(w WireSeat) Seat {
	return Seat{Row: w.Row - 1, Col: w.Col - 1}
}

// ToWire is the inverse of FromWire, used on every outbound seat list.
func ToWire(s Seat) WireSeat {
	return WireSeat{Row: s.Row + 1, Col: s.Col + 1}
}

// FromWireAll maps FromWire over a slice.  A nil input yields a nil output.
func FromWireAll(ws []WireSeat) []Seat {
	if ws == nil {
		return nil
	}
	out := make([]Seat, 0, len(ws))
	for _, w := range ws {
		out = append(out, FromWire(w))
	}
	return out
}

// ToWireAll maps ToWire over a slice.  A nil input yields a nil output.
func ToWireAll(seats []Seat) []WireSeat {
	if seats == nil {
		return nil
	}
	out := make([]WireSeat, 0, len(seats))
	for _, s := range seats {
		out = append(out, ToWire(s))
	}
	return out
}
