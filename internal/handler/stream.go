package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-flow/internal/hub"
	"github.com/iliyamo/seat-booking-flow/internal/repository"
	"github.com/iliyamo/seat-booking-flow/internal/stream"
)

// keepaliveInterval is how often comment lines are written to idle
// streams so proxies do not time the connection out.
const keepaliveInterval = 15 * time.Second

// StreamHandler serves the per-schedule availability stream as SSE.
// Each connection gets exactly one snapshot up front, then incremental
// seat-update events from the hub until the client goes away.
type StreamHandler struct {
	Hub       *hub.Hub
	Holds     *repository.HoldStore
	Schedules *repository.ScheduleRepo
}

func NewStreamHandler(h *hub.Hub, holds *repository.HoldStore, schedules *repository.ScheduleRepo) *StreamHandler {
	return &StreamHandler{Hub: h, Holds: holds, Schedules: schedules}
}

// Subscribe handles GET /v1/schedules/:id/seats/stream.
func (h *StreamHandler) Subscribe(c echo.Context) error {
	scheduleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || scheduleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Schedules.Get(ctx, scheduleID); err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load schedule failed"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-store")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	// Snapshot before subscribing would lose events in the gap, so
	// subscribe first: an event that races the snapshot is re-applied
	// harmlessly because updates are set merges, not toggles.
	sub := h.Hub.Subscribe(scheduleID)
	defer h.Hub.Unsubscribe(sub)

	pending, err := h.Holds.Pending(ctx, scheduleID)
	if err != nil {
		return err
	}
	reserved, err := h.Holds.Reserved(ctx, scheduleID)
	if err != nil {
		return err
	}
	if err := writeEvent(res, stream.EventSnapshot, stream.Snapshot{
		Pending:  pending,
		Reserved: reserved,
	}); err != nil {
		return err
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sub.Events():
			update := stream.Update{Action: stream.Action(ev.Action), Seats: ev.Seats}
			if err := writeEvent(res, stream.EventSeatUpdate, update); err != nil {
				return nil
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(res, ":keepalive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
