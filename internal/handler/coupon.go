package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-flow/internal/model"
	"github.com/iliyamo/seat-booking-flow/internal/repository"
)

// CouponHandler validates coupon codes during discount selection.
type CouponHandler struct {
	Coupons *repository.CouponRepo
}

func NewCouponHandler(r *repository.CouponRepo) *CouponHandler {
	return &CouponHandler{Coupons: r}
}

type validateCouponReq struct {
	Code string `json:"code"`
}

// Validate resolves a coupon code into a Discount.  An empty code is a
// finalized "no discount" choice and always succeeds; an unknown or
// expired code is a 404 so the client can show an inline error.
func (h *CouponHandler) Validate(c echo.Context) error {
	var req validateCouponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return c.JSON(http.StatusOK, model.Discount{Kind: model.DiscountNone})
	}

	coupon, err := h.Coupons.GetByCode(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid coupon code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "coupon lookup failed"})
	}

	return c.JSON(http.StatusOK, coupon.Discount())
}
