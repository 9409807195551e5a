package model

import (
	"time"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
)

// HoldRecord is the server-side state of one seat hold.  Unlike the
// durable MySQL entities, hold records live in Redis under
// `booking:{id}` with a TTL matching the hold window, so they expire
// on their own even if every release path is missed.
//
// Fields:
//  BookingID  – opaque identifier returned to the client.
//  UserID     – user who owns the hold.
//  ScheduleID – schedule the held seats belong to.
//  Seats      – held seats in wire (1-based) coordinates.
//  ExpiresAt  – server-side expiry deadline.
type HoldRecord struct {
	BookingID  string          `json:"booking_id"`
	UserID     uint64          `json:"user_id"`
	ScheduleID uint64          `json:"schedule_id"`
	Seats      []grid.WireSeat `json:"seats"`
	ExpiresAt  time.Time       `json:"expires_at"`
}
