package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
)

// ErrScheduleNotFound is returned when a schedule id does not exist or
// the schedule is closed for booking.  Handlers should translate this
// into an HTTP 404 response.
var ErrScheduleNotFound = errors.New("schedule not found")

// ScheduleRepo provides read access to schedules and their seating
// layouts.  A layout is assembled from four tables: the schedule row
// gives the grid dimensions, seat_types gives per-grade pricing,
// grade_ranges maps row bands to grades and disabled_seats lists the
// unsellable seats.  All coordinates are stored 1-based, matching the
// wire convention.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo bound to the given database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

// Get fetches a single active schedule by id.
func (r *ScheduleRepo) Get(ctx context.Context, id uint64) (model.Schedule, error) {
	var s model.Schedule
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, starts_at, seat_rows, seat_cols, is_active, created_at, updated_at
		 FROM schedules WHERE id = ? AND is_active = 1 LIMIT 1`,
		id).Scan(&s.ID, &s.Title, &s.StartsAt, &s.SeatRows, &s.SeatCols, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, ErrScheduleNotFound
	}
	return s, err
}

// ListActiveIDs returns the ids of every schedule open for booking,
// used to seed the Redis reserved sets on startup.
func (r *ScheduleRepo) ListActiveIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM schedules WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Layout assembles the full seating layout for a schedule.  Grade
// ranges are returned in primary-key order so first-match-wins
// evaluation is stable.
func (r *ScheduleRepo) Layout(ctx context.Context, scheduleID uint64) (grid.Layout, error) {
	s, err := r.Get(ctx, scheduleID)
	if err != nil {
		return grid.Layout{}, err
	}

	layout := grid.Layout{
		Rows:      int(s.SeatRows),
		Cols:      int(s.SeatCols),
		SeatTypes: make(map[string]grid.SeatType),
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT grade, label, price_cents FROM seat_types WHERE schedule_id = ?`, scheduleID)
	if err != nil {
		return grid.Layout{}, err
	}
	for rows.Next() {
		var grade string
		var st grid.SeatType
		if err := rows.Scan(&grade, &st.Label, &st.PriceCents); err != nil {
			rows.Close()
			return grid.Layout{}, err
		}
		layout.SeatTypes[grade] = st
	}
	if err := rows.Close(); err != nil {
		return grid.Layout{}, err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT grade, from_row, to_row FROM grade_ranges WHERE schedule_id = ? ORDER BY id`, scheduleID)
	if err != nil {
		return grid.Layout{}, err
	}
	for rows.Next() {
		var gr model.GradeRangeRow
		if err := rows.Scan(&gr.Grade, &gr.FromRow, &gr.ToRow); err != nil {
			rows.Close()
			return grid.Layout{}, err
		}
		// stored 1-based inclusive, Layout wants 0-based internal rows
		layout.Grades = append(layout.Grades, grid.GradeRange{
			Grade:   gr.Grade,
			FromRow: int(gr.FromRow) - 1,
			ToRow:   int(gr.ToRow) - 1,
		})
	}
	if err := rows.Close(); err != nil {
		return grid.Layout{}, err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT seat_row, seat_col FROM disabled_seats WHERE schedule_id = ?`, scheduleID)
	if err != nil {
		return grid.Layout{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var w grid.WireSeat
		if err := rows.Scan(&w.Row, &w.Col); err != nil {
			return grid.Layout{}, err
		}
		layout.Disabled = append(layout.Disabled, w)
	}
	return layout, rows.Err()
}
