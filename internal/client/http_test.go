package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
)

func TestStartHoldSuccess(t *testing.T) {
	expires := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/schedules/3/hold", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var in struct {
			Seats []grid.WireSeat `json:"seats"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, []grid.WireSeat{{Row: 1, Col: 1}, {Row: 1, Col: 2}}, in.Seats)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Hold{
			BookingID: "b-1",
			ExpiresAt: expires,
			Seats:     in.Seats,
		})
	}))
	defer srv.Close()

	api := New(srv.URL)
	api.SetToken("tok")
	hold, err := api.StartHold(context.Background(), 3, []grid.WireSeat{{Row: 1, Col: 1}, {Row: 1, Col: 2}})
	require.NoError(t, err)
	assert.Equal(t, "b-1", hold.BookingID)
	assert.True(t, hold.ExpiresAt.Equal(expires))
	assert.Len(t, hold.Seats, 2)
}

func TestStartHoldFailureCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": "some seats are unavailable"})
	}))
	defer srv.Close()

	api := New(srv.URL)
	_, err := api.StartHold(context.Background(), 3, []grid.WireSeat{{Row: 1, Col: 1}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "some seats are unavailable", apiErr.Message)
}

func TestCancelHoldTreatsNotFoundAsReleased(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": "booking not found"})
	}))
	defer srv.Close()

	api := New(srv.URL)
	assert.NoError(t, api.CancelHold(context.Background(), "gone"), "already released must count as success")
}

func TestValidateCouponEmptyCodeIsLocalNone(t *testing.T) {
	api := New("http://unreachable.invalid")
	d, err := api.ValidateCoupon(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.DiscountNone, d.Kind)
}

func TestBeaconFiresAndIgnoresOutcome(t *testing.T) {
	received := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			BookingID string `json:"booking_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		received <- in.BookingID
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	b := NewBeacon(srv.URL)
	b.Release("b-9")
	b.Release("b-9") // repeat triggers are allowed

	assert.Equal(t, "b-9", <-received)
	assert.Equal(t, "b-9", <-received)

	// Dead endpoint: must return without error or panic.
	dead := NewBeacon("http://127.0.0.1:1")
	dead.Release("b-9")
	dead.Release("")
}
