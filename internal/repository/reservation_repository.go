package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-booking-flow/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and their
// seats.  Reservations group together one or more seats for a
// particular schedule and user.  Seats confirmed under a reservation
// are stored in the reservation_seats table.  All timestamp fields
// are assumed to be stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new reservation within the scope of an existing
// transaction.  It populates the generated ID and timestamps on the
// provided record.  The caller must commit or roll back the
// transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.ReservationRecord) error {
	const q = `INSERT INTO reservations (user_id, schedule_id, booking_id, status, total_amount_cents, coupon_code)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.UserID, res.ScheduleID, res.BookingID, res.Status, res.TotalAmountCents, res.CouponCode)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the row to populate timestamps and defaults.
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// CreateSeatsBulkTx inserts multiple reservation_seats rows in a single
// statement.  The caller must supply the reservation ID in each record.
// Passing an empty slice has no effect and returns nil.
func (r *ReservationRepo) CreateSeatsBulkTx(ctx context.Context, tx *sql.Tx, seats []model.ReservationSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_seats (reservation_id, schedule_id, seat_row, seat_col, price_cents) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, s.ReservationID, s.ScheduleID, s.SeatRow, s.SeatCol, s.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// SeatsBySchedule returns every confirmed seat for a schedule in wire
// coordinates, used to seed the Redis reserved set on startup.
func (r *ReservationRepo) SeatsBySchedule(ctx context.Context, scheduleID uint64) ([]model.ReservationSeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rs.reservation_id, rs.schedule_id, rs.seat_row, rs.seat_col, rs.price_cents
		 FROM reservation_seats rs
		 JOIN reservations r ON r.id = rs.reservation_id
		 WHERE rs.schedule_id = ? AND r.status = 'CONFIRMED'`,
		scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.ReservationSeat
	for rows.Next() {
		var s model.ReservationSeat
		if err := rows.Scan(&s.ReservationID, &s.ScheduleID, &s.SeatRow, &s.SeatCol, &s.PriceCents); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// ListByUser returns a user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.ReservationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, schedule_id, booking_id, status, total_amount_cents, coupon_code, created_at, updated_at
		 FROM reservations WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ReservationRecord
	for rows.Next() {
		var rec model.ReservationRecord
		var coupon sql.NullString
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ScheduleID, &rec.BookingID, &rec.Status,
			&rec.TotalAmountCents, &coupon, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if coupon.Valid {
			c := coupon.String
			rec.CouponCode = &c
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
