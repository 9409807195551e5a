package model

import "time"

// Coupon is a redeemable discount code as stored in the `coupons`
// table.  Exactly one of AmountCents or Percent is meaningful,
// selected by Kind (FLAT or PERCENT).
//
// Fields:
//  ID          – primary key identifier.
//  Code        – unique coupon code, matched case-insensitively.
//  Kind        – discount kind (FLAT or PERCENT).
//  AmountCents – flat discount in cents (FLAT only).
//  Percent     – percentage off the subtotal (PERCENT only).
//  ExpiresAt   – when the coupon stops validating (nullable).
//  IsActive    – whether the coupon can currently be redeemed.
//  CreatedAt   – creation timestamp.
type Coupon struct {
	ID          uint64     // coupons.id
	Code        string     // coupons.code
	Kind        string     // coupons.kind
	AmountCents uint32     // coupons.amount_cents
	Percent     uint32     // coupons.percent
	ExpiresAt   *time.Time // coupons.expires_at (nullable)
	IsActive    bool       // coupons.is_active
	CreatedAt   time.Time  // coupons.created_at
}

// Discount converts the coupon into the result shape the booking
// session consumes.  Validation and the confirmation recheck both go
// through this so the two can never disagree on the amount.
func (c Coupon) Discount() Discount {
	return Discount{
		CouponCode:  c.Code,
		Kind:        c.Kind,
		AmountCents: c.AmountCents,
		Percent:     c.Percent,
	}
}
