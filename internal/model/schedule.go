package model

import "time"

// Schedule represents a bookable performance: one auditorium layout
// shown at one start time.  Seat availability, holds and reservations
// all hang off a schedule.  This struct corresponds to a row in the
// `schedules` table.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – performance title.
//  StartsAt       – when the performance begins.
//  SeatRows       – number of seating rows in the auditorium.
//  SeatCols       – number of seats per row.
//  IsActive       – whether the schedule is open for booking.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Schedule struct {
	ID        uint64    // schedules.id
	Title     string    // schedules.title
	StartsAt  time.Time // schedules.starts_at
	SeatRows  uint32    // schedules.seat_rows
	SeatCols  uint32    // schedules.seat_cols
	IsActive  bool      // schedules.is_active
	CreatedAt time.Time // schedules.created_at
	UpdatedAt time.Time // schedules.updated_at
}

// SeatTypeRow maps a seat grade to its display label and price for one
// schedule.  Corresponds to a row in the `seat_types` table.
//
// Fields:
//  ID         – primary key identifier.
//  ScheduleID – schedule this grade belongs to.
//  Grade      – grade key (e.g. STANDARD, VIP).
//  Label      – human-readable label.
//  PriceCents – seat price in cents.
type SeatTypeRow struct {
	ID         uint64 // seat_types.id
	ScheduleID uint64 // seat_types.schedule_id
	Grade      string // seat_types.grade
	Label      string // seat_types.label
	PriceCents uint32 // seat_types.price_cents
}

// GradeRangeRow assigns a contiguous band of rows to a seat grade.
// Ranges are evaluated in insertion order and the first match wins.
// Corresponds to a row in the `grade_ranges` table; FromRow and ToRow
// use the wire convention of 1-based inclusive row numbers.
type GradeRangeRow struct {
	ID         uint64 // grade_ranges.id
	ScheduleID uint64 // grade_ranges.schedule_id
	Grade      string // grade_ranges.grade
	FromRow    uint32 // grade_ranges.from_row (1-based)
	ToRow      uint32 // grade_ranges.to_row (1-based, inclusive)
}

// DisabledSeatRow marks a single seat as not sellable for a schedule,
// e.g. broken seats or distancing blocks.  Coordinates use the wire
// convention (1-based).  Corresponds to a row in the `disabled_seats`
// table.
type DisabledSeatRow struct {
	ID         uint64 // disabled_seats.id
	ScheduleID uint64 // disabled_seats.schedule_id
	SeatRow    uint32 // disabled_seats.seat_row (1-based)
	SeatCol    uint32 // disabled_seats.seat_col (1-based)
}
