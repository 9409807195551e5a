// Package stream consumes the per-schedule seat-availability push stream
// and reconciles it into a Grid.  The protocol is receive-only: exactly one
// snapshot per connection followed by incremental seat-update events, all
// in one-based wire coordinates.
package stream

import "github.com/iliyamo/seat-booking-flow/internal/grid"

// Event names as they appear on the wire.
const (
	EventSnapshot   = "snapshot"
	EventSeatUpdate = "seat-update"
)

// Action describes what happened to the seats carried by an update event.
type Action string

const (
	// ActionOccupied moves seats into the pending set: some user holds
	// them, payment not completed.
	ActionOccupied Action = "OCCUPIED"
	// ActionConfirmed moves seats into the reserved set.  A confirmed seat
	// is never un-confirmed by a later RELEASED within the same
	// connection; only the next snapshot is trusted to say otherwise.
	ActionConfirmed Action = "CONFIRMED"
	// ActionReleased removes seats from the pending set.
	ActionReleased Action = "RELEASED"
)

// Snapshot is the full authoritative availability state, sent exactly once
// per stream connection before any update.
type Snapshot struct {
	Pending  []grid.WireSeat `json:"pending"`
	Reserved []grid.WireSeat `json:"reserved"`
}

// Update is an incremental availability change.
type Update struct {
	Action Action          `json:"action"`
	Seats  []grid.WireSeat `json:"seats"`
}

// Handlers bundles the callbacks a Subscriber invokes.  OnClose fires once
// when the stream reaches a terminal closed state; it is not called when
// the subscription is cancelled by its context.
type Handlers struct {
	OnSnapshot func(Snapshot)
	OnUpdate   func(Update)
	OnClose    func(err error)
}
