package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/seat-booking-flow/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/seat-booking-flow/internal/middleware" // import middleware for JWT authentication and rate limiting
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth     *handler.AuthHandler
	Schedule *handler.ScheduleHandler
	Booking  *handler.BookingHandler
	Coupon   *handler.CouponHandler
	Stream   *handler.StreamHandler
}

// Register wires all routes onto the provided Echo instance.
//
// Three authentication tiers exist: /healthz and /v1/auth/* are open,
// the release beacon is open by design (unload-time beacons cannot
// carry headers), and everything else requires a bearer token.  The
// rate limiter wraps only hold creation, the endpoint a misbehaving
// client could use to churn seat locks.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Unauthenticated session establishment.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Teardown release: fire-and-forget, no auth, always 204.
	e.POST("/v1/bookings/release-beacon", h.Booking.ReleaseBeacon)

	// Everything else needs a valid access token.
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	v1.GET("/schedules/:id/layout", h.Schedule.Layout)
	v1.GET("/schedules/:id/seats/stream", h.Stream.Subscribe)
	v1.POST("/schedules/:id/hold", h.Booking.CreateHold, rateLimit)

	v1.DELETE("/bookings/:id", h.Booking.CancelHold)
	v1.POST("/bookings/:id/confirm", h.Booking.Confirm)

	v1.POST("/coupons/validate", h.Coupon.Validate)
	v1.GET("/reservations", h.Booking.ListReservations)
}
