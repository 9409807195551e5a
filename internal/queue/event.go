// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/seat-booking-flow/internal/grid"

// Seat event actions, mirrored verbatim into the SSE stream.
const (
	ActionOccupied  = "OCCUPIED"
	ActionReleased  = "RELEASED"
	ActionConfirmed = "CONFIRMED"
)

// SeatEvent is published on the seat.events fanout exchange whenever a
// hold is taken, released, expired or confirmed. Every server instance
// consumes it and forwards it to that instance's stream subscribers,
// which is how availability stays consistent across replicas. Seats
// are in wire (1-based) coordinates.
type SeatEvent struct {
	ScheduleID uint64          `json:"schedule_id"`
	Action     string          `json:"action"`
	Seats      []grid.WireSeat `json:"seats"`
}

// BookingConfirmedEvent is published when a reservation is successfully
// confirmed. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type BookingConfirmedEvent struct {
	ReservationID    uint64          `json:"reservation_id"`
	UserID           uint64          `json:"user_id"`
	ScheduleID       uint64          `json:"schedule_id"`
	ScheduleTitle    string          `json:"schedule_title"`
	StartsAt         string          `json:"starts_at"`
	Seats            []grid.WireSeat `json:"seats"`
	TotalAmountCents uint32          `json:"total_amount_cents"`
	ConfirmedAt      string          `json:"confirmed_at"`
}
