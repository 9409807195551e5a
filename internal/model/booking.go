package model

import (
	"time"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
)

// Hold is a server-side temporary seat reservation, bounded by ExpiresAt.
// The seat list is the one the server actually granted, which is the
// authoritative record even if the local selection changed while the
// request was in flight.
//
// Fields:
//  BookingID – unguessable identifier of the hold.
//  ExpiresAt – UTC deadline after which the server releases the seats.
//  Seats     – held seats in one-based wire coordinates.
type Hold struct {
	BookingID string          `json:"booking_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Seats     []grid.WireSeat `json:"seats"`
}

// Discount kinds.  NONE is a finalized "no coupon" choice, which is still a
// completed discount-selection step.
const (
	DiscountNone    = "NONE"
	DiscountFlat    = "FLAT"
	DiscountPercent = "PERCENT"
)

// Discount is the result of coupon validation, consumed by the booking
// session when advancing past the discount step.
type Discount struct {
	CouponCode  string `json:"coupon_code,omitempty"`
	Kind        string `json:"kind"`
	AmountCents uint32 `json:"amount_cents,omitempty"`
	Percent     uint32 `json:"percent,omitempty"`
}

// AmountOff computes the discount value against a subtotal, clamped so the
// total never goes negative.
func (d Discount) AmountOff(subtotalCents uint32) uint32 {
	var off uint32
	switch d.Kind {
	case DiscountFlat:
		off = d.AmountCents
	case DiscountPercent:
		off = uint32(uint64(subtotalCents) * uint64(d.Percent) / 100)
	default:
		return 0
	}
	if off > subtotalCents {
		return subtotalCents
	}
	return off
}

// LineItem is one seat's contribution to a payment draft.
type LineItem struct {
	Seat       grid.WireSeat `json:"seat"`
	Grade      string        `json:"grade"`
	PriceCents uint32        `json:"price_cents"`
}

// PaymentDraft is the frozen checkout amount computed when the session
// advances past discount selection.  It is never recomputed from mutated
// inputs; the user sees one total from that point on.
// CouponCode names the coupon behind DiscountCents so the server can
// re-validate the claimed discount at confirmation.
type PaymentDraft struct {
	Items         []LineItem `json:"items"`
	CouponCode    string     `json:"coupon_code,omitempty"`
	SubtotalCents uint32     `json:"subtotal_cents"`
	DiscountCents uint32     `json:"discount_cents"`
	TotalCents    uint32     `json:"total_cents"`
}

// Reservation is the confirmed booking returned by the payment-creation
// call.
type Reservation struct {
	ReservationID uint64 `json:"reservation_id"`
	TotalCents    uint32 `json:"total_amount_cents"`
}
