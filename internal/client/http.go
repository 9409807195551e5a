// Package client is the typed HTTP client for the booking service: the
// occupancy REST calls, the collaborator endpoints (layout, coupon,
// payment) and the fire-and-forget teardown beacon.  Transport failures are
// converted into typed errors at this boundary; nothing here panics or
// leaks raw *http.Response values to callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
)

// APIError is a non-2xx response carrying the server's user-facing message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// API calls the booking service.  The zero value is not usable; construct
// with New.  Token may be set after login; every authenticated call sends
// it as a bearer token.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns an API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (a *API) SetToken(token string) { a.token = token }

// Token returns the current bearer token, for wiring into the stream
// subscriber which authenticates the same way.
func (a *API) Token() string { return a.token }

// BaseURL returns the service root this client talks to.
func (a *API) BaseURL() string { return a.baseURL }

// Login exchanges credentials for an access token and installs it.
func (a *API) Login(ctx context.Context, email, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/v1/auth/login", in, &out); err != nil {
		return err
	}
	a.token = out.AccessToken
	return nil
}

// FetchLayout loads the static seat layout for a schedule.  Called once
// when the seat-selection view mounts.
func (a *API) FetchLayout(ctx context.Context, scheduleID uint64) (grid.Layout, error) {
	var out grid.Layout
	path := fmt.Sprintf("/v1/schedules/%d/layout", scheduleID)
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return grid.Layout{}, err
	}
	return out, nil
}

// StartHold converts a seat selection into a temporary server-side hold.
// The returned Hold carries the seats the server actually granted.  A
// non-2xx response comes back as *APIError; no partial hold is ever
// considered acquired.
func (a *API) StartHold(ctx context.Context, scheduleID uint64, seats []grid.WireSeat) (model.Hold, error) {
	var out model.Hold
	in := map[string]any{"seats": seats}
	path := fmt.Sprintf("/v1/schedules/%d/hold", scheduleID)
	if err := a.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return model.Hold{}, err
	}
	return out, nil
}

// CancelHold releases a hold.  "Already gone" is success: the server
// answers 404 for unknown or expired bookings and the caller treats the
// hold as released either way.
func (a *API) CancelHold(ctx context.Context, bookingID string) error {
	err := a.do(ctx, http.MethodDelete, "/v1/bookings/"+bookingID, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

// ValidateCoupon checks a coupon code and returns the discount result.  An
// empty code finalizes a "no discount" selection without a server call.
func (a *API) ValidateCoupon(ctx context.Context, code string) (model.Discount, error) {
	if code == "" {
		return model.Discount{Kind: model.DiscountNone}, nil
	}
	var out model.Discount
	in := map[string]string{"code": code}
	if err := a.do(ctx, http.MethodPost, "/v1/coupons/validate", in, &out); err != nil {
		return model.Discount{}, err
	}
	return out, nil
}

// CreatePayment submits the frozen payment draft for a held booking and
// returns the confirmed reservation.
func (a *API) CreatePayment(ctx context.Context, bookingID string, draft model.PaymentDraft) (model.Reservation, error) {
	var out model.Reservation
	path := fmt.Sprintf("/v1/bookings/%s/confirm", bookingID)
	if err := a.do(ctx, http.MethodPost, path, draft, &out); err != nil {
		return model.Reservation{}, err
	}
	return out, nil
}

// do performs one JSON request/response cycle.  Non-2xx statuses become
// *APIError with the server's "error" message when one is present.
func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := struct {
			Error string `json:"error"`
		}{}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = json.Unmarshal(data, &msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
