package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Beacon is the best-effort teardown transport: it delivers a minimal
// release payload during page/process teardown without awaiting a result.
// It is deliberately separate from API: API's callers observe errors and
// react; Beacon's contract is that nothing is observed, nothing is retried
// and the server-side hold expiry is the correctness backstop.
type Beacon struct {
	baseURL string
	http    *http.Client
}

// NewBeacon returns a Beacon for the given service root.  The short
// timeout bounds how long teardown can stall on a dead network.
func NewBeacon(baseURL string) *Beacon {
	return &Beacon{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Release fires the release request for a booking and discards the
// outcome.  Safe to call repeatedly and for bookings that are already
// gone; the endpoint is idempotent and unauthenticated by design (auth
// headers are not reliably available mid-teardown).
func (b *Beacon) Release(bookingID string) {
	if bookingID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"booking_id": bookingID})
	if err != nil {
		return
	}
	body := bytes.NewReader(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/bookings/release-beacon", body)
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.http.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
