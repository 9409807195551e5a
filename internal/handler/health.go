package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers load balancer probes. It deliberately pings nothing:
// MySQL and Redis are verified at startup, and a Rabbit outage only
// degrades event fan-out, so a deep check here would flap on outages
// the service survives.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
