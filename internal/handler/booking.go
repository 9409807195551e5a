package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-flow/internal/config"
	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/middleware"
	"github.com/iliyamo/seat-booking-flow/internal/model"
	"github.com/iliyamo/seat-booking-flow/internal/queue"
	"github.com/iliyamo/seat-booking-flow/internal/repository"
)

// HoldStore is the slice of the redis hold store the booking handler
// uses.  *repository.HoldStore satisfies it.
type HoldStore interface {
	Create(ctx context.Context, userID, scheduleID uint64, seats []grid.WireSeat) (model.HoldRecord, []grid.WireSeat, error)
	GetOwned(ctx context.Context, bookingID string, userID uint64) (model.HoldRecord, error)
	Release(ctx context.Context, bookingID string) (model.HoldRecord, error)
	Confirm(ctx context.Context, bookingID string) (model.HoldRecord, error)
}

// BookingHandler owns the hold lifecycle endpoints: acquiring a hold,
// cancelling it, the unauthenticated teardown beacon and confirming the
// hold into a reservation.
type BookingHandler struct {
	Cfg          config.Config
	DB           *sql.DB
	Holds        HoldStore
	Schedules    *repository.ScheduleRepo
	Coupons      *repository.CouponRepo
	Reservations *repository.ReservationRepo
	Bus          *queue.Publisher
}

func NewBookingHandler(cfg config.Config, db *sql.DB, holds HoldStore,
	schedules *repository.ScheduleRepo, coupons *repository.CouponRepo,
	reservations *repository.ReservationRepo, bus *queue.Publisher) *BookingHandler {
	return &BookingHandler{
		Cfg: cfg, DB: db, Holds: holds,
		Schedules: schedules, Coupons: coupons, Reservations: reservations, Bus: bus,
	}
}

type createHoldReq struct {
	Seats []grid.WireSeat `json:"seats"`
}

// CreateHold converts a client's selection into a bounded-time hold.
// All-or-nothing: any unavailable seat fails the whole request with a
// 409 listing the conflicts, and no partial hold survives.
func (h *BookingHandler) CreateHold(c echo.Context) error {
	scheduleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || scheduleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	var req createHoldReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats requested"})
	}
	if len(req.Seats) > h.Cfg.MaxHoldSeats {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "too many seats requested"})
	}

	ctx := c.Request().Context()
	layout, err := h.Schedules.Layout(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load layout failed"})
	}

	// Disabled seats are permanently unsellable; report them like any
	// other conflict so the client's eviction path handles both.
	disabled := make(map[grid.WireSeat]struct{}, len(layout.Disabled))
	for _, w := range layout.Disabled {
		disabled[w] = struct{}{}
	}
	var blocked []grid.WireSeat
	for _, w := range req.Seats {
		if !layout.Contains(grid.FromWire(w)) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat outside layout"})
		}
		if _, bad := disabled[w]; bad {
			blocked = append(blocked, w)
		}
	}
	if len(blocked) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable", "unavailable": blocked})
	}

	rec, unavailable, err := h.Holds.Create(ctx, middleware.UserID(c), scheduleID, req.Seats)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable", "unavailable": unavailable})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create hold failed"})
	}

	h.publish(queue.SeatEvent{ScheduleID: scheduleID, Action: queue.ActionOccupied, Seats: rec.Seats})

	return c.JSON(http.StatusCreated, model.Hold{
		BookingID: rec.BookingID,
		ExpiresAt: rec.ExpiresAt,
		Seats:     rec.Seats,
	})
}

// CancelHold releases a caller's own hold.  Unknown or expired booking
// ids answer 404, which clients treat as already released.
func (h *BookingHandler) CancelHold(c echo.Context) error {
	bookingID := c.Param("id")
	ctx := c.Request().Context()

	rec, err := h.Holds.GetOwned(ctx, bookingID, middleware.UserID(c))
	if err != nil {
		return holdError(c, err, "lookup hold failed")
	}

	if _, err := h.Holds.Release(ctx, bookingID); err != nil && !errors.Is(err, repository.ErrHoldNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "release hold failed"})
	}
	h.publish(queue.SeatEvent{ScheduleID: rec.ScheduleID, Action: queue.ActionReleased, Seats: rec.Seats})
	return c.JSON(http.StatusOK, echo.Map{"released": true})
}

type beaconReq struct {
	BookingID string `json:"booking_id"`
}

// ReleaseBeacon is the teardown release target.  It is deliberately
// unauthenticated: browsers cannot attach headers to unload-time
// beacons, the booking id is an unguessable UUID, and releasing an
// already-gone hold is a no-op.  It always answers 204 because no
// caller is left to observe anything else.
func (h *BookingHandler) ReleaseBeacon(c echo.Context) error {
	var req beaconReq
	if err := c.Bind(&req); err != nil || req.BookingID == "" {
		return c.NoContent(http.StatusNoContent)
	}
	rec, err := h.Holds.Release(c.Request().Context(), req.BookingID)
	if err == nil {
		h.publish(queue.SeatEvent{ScheduleID: rec.ScheduleID, Action: queue.ActionReleased, Seats: rec.Seats})
	}
	return c.NoContent(http.StatusNoContent)
}

// Confirm turns a live hold into a durable reservation.  The submitted
// draft is recomputed against the layout's prices and the claimed
// coupon; a mismatched amount is rejected rather than silently
// corrected, since the client froze the total it showed the user.
func (h *BookingHandler) Confirm(c echo.Context) error {
	bookingID := c.Param("id")
	uid := middleware.UserID(c)

	var draft model.PaymentDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	rec, err := h.Holds.GetOwned(ctx, bookingID, uid)
	if err != nil {
		return holdError(c, err, "lookup hold failed")
	}

	layout, err := h.Schedules.Layout(ctx, rec.ScheduleID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load layout failed"})
	}
	var subtotal uint32
	seatRows := make([]model.ReservationSeat, 0, len(rec.Seats))
	for _, w := range rec.Seats {
		price, ok := layout.PriceOf(grid.FromWire(w))
		if !ok {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unpriced seat in hold"})
		}
		subtotal += price
		seatRows = append(seatRows, model.ReservationSeat{
			ScheduleID: rec.ScheduleID,
			SeatRow:    uint32(w.Row),
			SeatCol:    uint32(w.Col),
			PriceCents: price,
		})
	}

	// The discount is never taken at the client's word: a claimed
	// amount must match what the named coupon yields on this subtotal.
	var couponCode *string
	if draft.DiscountCents > 0 {
		if draft.CouponCode == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount without coupon code"})
		}
		coupon, err := h.Coupons.GetByCode(ctx, draft.CouponCode)
		if err != nil {
			if errors.Is(err, repository.ErrCouponNotFound) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon code"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "coupon lookup failed"})
		}
		if coupon.Discount().AmountOff(subtotal) != draft.DiscountCents {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment draft does not match coupon"})
		}
		couponCode = &coupon.Code
	}
	if draft.SubtotalCents != subtotal ||
		draft.DiscountCents > subtotal ||
		draft.TotalCents != subtotal-draft.DiscountCents {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment draft does not match held seats"})
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	res := model.ReservationRecord{
		UserID:           uid,
		ScheduleID:       rec.ScheduleID,
		BookingID:        bookingID,
		Status:           "CONFIRMED",
		TotalAmountCents: draft.TotalCents,
		CouponCode:       couponCode,
	}
	if err := h.Reservations.CreateTx(ctx, tx, &res); err != nil {
		_ = tx.Rollback()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reservation failed"})
	}
	for i := range seatRows {
		seatRows[i].ReservationID = res.ID
	}
	if err := h.Reservations.CreateSeatsBulkTx(ctx, tx, seatRows); err != nil {
		_ = tx.Rollback()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reservation seats failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	// The durable row exists; from here everything is best-effort.
	if _, err := h.Holds.Confirm(ctx, bookingID); err != nil {
		log.Printf("booking: confirm hold cleanup failed for %s: %v", bookingID, err)
	}
	h.publish(queue.SeatEvent{ScheduleID: rec.ScheduleID, Action: queue.ActionConfirmed, Seats: rec.Seats})

	confirmed := queue.BookingConfirmedEvent{
		ReservationID:    res.ID,
		UserID:           uid,
		ScheduleID:       rec.ScheduleID,
		Seats:            rec.Seats,
		TotalAmountCents: draft.TotalCents,
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if sched, err := h.Schedules.Get(ctx, rec.ScheduleID); err == nil {
		confirmed.ScheduleTitle = sched.Title
		confirmed.StartsAt = sched.StartsAt.Format(time.RFC3339)
	}
	go func(ev queue.BookingConfirmedEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Bus.PublishBookingConfirmed(ctx, ev)
	}(confirmed)

	return c.JSON(http.StatusOK, model.Reservation{
		ReservationID: res.ID,
		TotalCents:    draft.TotalCents,
	})
}

// ListReservations returns the caller's reservations, newest first.
func (h *BookingHandler) ListReservations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	recs, err := h.Reservations.ListByUser(c.Request().Context(), middleware.UserID(c), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": recs})
}

// holdError maps hold lookup failures onto their statuses: missing or
// expired holds are a 404, someone else's hold is a 403.
func holdError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrHoldNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found or expired"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your hold"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}

func (h *BookingHandler) publish(ev queue.SeatEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Bus.PublishSeatEvent(ctx, ev); err != nil {
		log.Printf("booking: publish seat event failed: %v", err)
	}
}
