package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-flow/internal/repository"
)

// ScheduleHandler serves the static seating layout the client fetches
// once when its seat-selection view mounts.
type ScheduleHandler struct {
	Schedules *repository.ScheduleRepo
}

func NewScheduleHandler(s *repository.ScheduleRepo) *ScheduleHandler {
	return &ScheduleHandler{Schedules: s}
}

// Layout returns the seat map for one schedule: dimensions, grade
// pricing, row-band grades and disabled seats.
func (h *ScheduleHandler) Layout(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}

	layout, err := h.Schedules.Layout(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load layout failed"})
	}
	return c.JSON(http.StatusOK, layout)
}
