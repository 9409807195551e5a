package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/seat-booking-flow/internal/model"
)

// ErrCouponNotFound is returned when a code does not match an active,
// unexpired coupon.  Handlers translate this into a 404 so the client
// can tell a bad code apart from an infrastructure failure.
var ErrCouponNotFound = errors.New("coupon not found")

// CouponRepo provides read access to the coupons table.
type CouponRepo struct {
	db *sql.DB
}

// NewCouponRepo returns a new CouponRepo bound to the given database.
func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

// GetByCode fetches an active coupon by its normalized code.  Expired
// and deactivated coupons are treated as not found.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (model.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var c model.Coupon
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, kind, amount_cents, percent, expires_at, is_active, created_at
		 FROM coupons WHERE code = ? AND is_active = 1 LIMIT 1`,
		code).Scan(&c.ID, &c.Code, &c.Kind, &c.AmountCents, &c.Percent, &expiresAt, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Coupon{}, ErrCouponNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
		if t.Before(time.Now().UTC()) {
			return model.Coupon{}, ErrCouponNotFound
		}
	}
	return c, nil
}
