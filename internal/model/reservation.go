package model

import "time"

// ReservationRecord records a user's confirmed booking for a
// schedule.  It aggregates the seats purchased under a single
// payment and tracks the overall status and total amount.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – user who made the reservation.
//  ScheduleID       – schedule being reserved.
//  BookingID        – the hold this reservation was confirmed from.
//  Status           – state of the reservation (CONFIRMED, CANCELLED).
//  TotalAmountCents – total price in cents for all seats.
//  CouponCode       – coupon applied at payment, if any.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type ReservationRecord struct {
	ID               uint64    // reservations.id
	UserID           uint64    // reservations.user_id
	ScheduleID       uint64    // reservations.schedule_id
	BookingID        string    // reservations.booking_id
	Status           string    // reservations.status
	TotalAmountCents uint32    // reservations.total_amount_cents
	CouponCode       *string   // reservations.coupon_code (nullable)
	CreatedAt        time.Time // reservations.created_at
	UpdatedAt        time.Time // reservations.updated_at
}

// ReservationSeat links a reservation to an individual seat.  Seats
// are stored in wire (1-based) coordinates, matching what the client
// was shown.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reference to the reservation.
//  ScheduleID    – schedule in which the seat is booked.
//  SeatRow       – 1-based row of the seat.
//  SeatCol       – 1-based column of the seat.
//  PriceCents    – price for this seat in cents.
//  CreatedAt     – creation timestamp.
type ReservationSeat struct {
	ID            uint64    // reservation_seats.id
	ReservationID uint64    // reservation_seats.reservation_id
	ScheduleID    uint64    // reservation_seats.schedule_id
	SeatRow       uint32    // reservation_seats.seat_row
	SeatCol       uint32    // reservation_seats.seat_col
	PriceCents    uint32    // reservation_seats.price_cents
	CreatedAt     time.Time // reservation_seats.created_at
}
