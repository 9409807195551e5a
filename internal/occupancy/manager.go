// Package occupancy manages the lifecycle of the server-side seat hold for
// one booking flow: acquiring it, cancelling it, expiring it on the
// server-issued deadline and releasing it best-effort on abrupt exit.
package occupancy

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
)

// State of the occupancy resource.  Transitions:
// IDLE → HOLDING → (CONFIRMING | RELEASING | EXPIRED) → IDLE.
type State string

const (
	StateIdle       State = "IDLE"
	StateHolding    State = "HOLDING"
	StateConfirming State = "CONFIRMING"
	StateReleasing  State = "RELEASING"
	StateExpired    State = "EXPIRED"
)

var (
	// ErrNotIdle is returned when StartHold is called while a hold exists.
	ErrNotIdle = errors.New("occupancy: a hold is already active")
	// ErrNoSeats is returned when StartHold is called without seats.
	ErrNoSeats = errors.New("occupancy: no seats selected")
	// ErrNotHolding is returned by operations that require an active hold.
	ErrNotHolding = errors.New("occupancy: no active hold")
	// ErrClosed is returned when a hold response lands after the flow was
	// torn down; the acquired hold is released best-effort.
	ErrClosed = errors.New("occupancy: flow closed")
)

// API is the request/response transport the manager observes errors from.
type API interface {
	StartHold(ctx context.Context, scheduleID uint64, seats []grid.WireSeat) (model.Hold, error)
	CancelHold(ctx context.Context, bookingID string) error
}

// Releaser is the fire-and-forget teardown transport.  Its outcome is
// deliberately unobserved; the server's own expiry is the backstop.
type Releaser interface {
	Release(bookingID string)
}

// Manager owns the hold for one schedule within one booking flow.  All
// methods are safe for concurrent use; network calls happen outside the
// internal lock so a slow server never blocks the expiry timer.
type Manager struct {
	api        API
	beacon     Releaser
	scheduleID uint64
	onExpire   func() // fires at most once per hold, outside the lock

	mu        sync.Mutex
	state     State
	bookingID string
	expiresAt time.Time
	timer     *time.Timer
	released  bool // teardown release already sent for the current hold
	closed    bool
}

// NewManager builds a Manager in the IDLE state.  onExpire is invoked when
// the countdown derived from the server deadline fires; it may be nil.
func NewManager(api API, beacon Releaser, scheduleID uint64, onExpire func()) *Manager {
	return &Manager{
		api:        api,
		beacon:     beacon,
		scheduleID: scheduleID,
		onExpire:   onExpire,
		state:      StateIdle,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Hold returns the active hold's identity, or ok=false when there is none.
func (m *Manager) Hold() (bookingID string, expiresAt time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookingID == "" {
		return "", time.Time{}, false
	}
	return m.bookingID, m.expiresAt, true
}

// StartHold converts the selection into a server-side hold.  Valid only
// from IDLE with a non-empty seat list.  On failure the state is unchanged
// and the error carries the server's message.  The response is applied
// against current state: if the flow was closed while the call was in
// flight, the fresh hold is released best-effort and ErrClosed is returned.
func (m *Manager) StartHold(ctx context.Context, seats []grid.WireSeat) (model.Hold, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.Hold{}, ErrClosed
	}
	if m.state != StateIdle {
		m.mu.Unlock()
		return model.Hold{}, ErrNotIdle
	}
	if len(seats) == 0 {
		m.mu.Unlock()
		return model.Hold{}, ErrNoSeats
	}
	m.mu.Unlock()

	hold, err := m.api.StartHold(ctx, m.scheduleID, seats)
	if err != nil {
		return model.Hold{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state != StateIdle {
		// Late response: discard and let the server reclaim the seats.
		go m.beacon.Release(hold.BookingID)
		return model.Hold{}, ErrClosed
	}
	m.state = StateHolding
	m.bookingID = hold.BookingID
	m.expiresAt = hold.ExpiresAt
	m.released = false
	m.armTimerLocked(hold.BookingID, hold.ExpiresAt)
	return hold, nil
}

// Adopt re-attaches a hold restored from a persisted session, re-arming
// the expiry countdown against the original server deadline.  Valid only
// from IDLE; a deadline already in the past fires the expiry immediately.
func (m *Manager) Adopt(bookingID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.state != StateIdle {
		return ErrNotIdle
	}
	if bookingID == "" {
		return ErrNotHolding
	}
	m.state = StateHolding
	m.bookingID = bookingID
	m.expiresAt = expiresAt
	m.released = false
	m.armTimerLocked(bookingID, expiresAt)
	return nil
}

// CancelHold releases the active hold.  The local state transitions to
// IDLE regardless of the server response; a failed release is only logged,
// because the server-side expiry reclaims the seats anyway.
func (m *Manager) CancelHold(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateHolding {
		m.mu.Unlock()
		return ErrNotHolding
	}
	m.state = StateReleasing
	bid := m.bookingID
	m.stopTimerLocked()
	m.mu.Unlock()

	if err := m.api.CancelHold(ctx, bid); err != nil {
		log.Printf("occupancy: release of booking %s failed (hold forgotten locally): %v", bid, err)
	}

	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()
	return nil
}

// BeginConfirm marks the hold as being converted into a reservation while
// the payment call is in flight.  The expiry timer keeps running: a hold
// that lapses mid-payment is still an expired hold.
func (m *Manager) BeginConfirm() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateHolding {
		return ErrNotHolding
	}
	m.state = StateConfirming
	return nil
}

// FinishConfirm completes a BeginConfirm.  On success the hold is consumed
// (the seats now belong to a confirmed reservation); on failure the hold
// remains active.  A no-op when expiry already cleaned up mid-flight.
func (m *Manager) FinishConfirm(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConfirming {
		return
	}
	if ok {
		m.stopTimerLocked()
		m.clearLocked()
		return
	}
	m.state = StateHolding
}

// ReleaseOnExit sends the best-effort teardown release.  It backs the three
// independent abandonment triggers (route change, unload, back-out) and is
// idempotent: only the first call for a given hold sends anything.
func (m *Manager) ReleaseOnExit() {
	m.mu.Lock()
	if m.bookingID == "" || m.released {
		m.mu.Unlock()
		return
	}
	bid := m.bookingID
	m.released = true
	m.stopTimerLocked()
	m.clearLocked()
	m.mu.Unlock()

	m.beacon.Release(bid)
}

// Close tears the manager down when the booking view unmounts: any active
// hold is released best-effort and late StartHold responses become no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.ReleaseOnExit()
}

// armTimerLocked schedules the expiry countdown for the given hold.  The
// booking id guards against a stale timer firing for a newer hold.
func (m *Manager) armTimerLocked(bid string, expiresAt time.Time) {
	d := time.Until(expiresAt)
	if d < 0 {
		d = 0
	}
	m.timer = time.AfterFunc(d, func() { m.expire(bid) })
}

func (m *Manager) expire(bid string) {
	m.mu.Lock()
	if m.bookingID != bid || (m.state != StateHolding && m.state != StateConfirming) {
		m.mu.Unlock()
		return
	}
	// No server call: the server expires the hold on its own deadline.
	// EXPIRED collapses straight into IDLE; the notification below is the
	// only trace the countdown leaves behind.
	m.clearLocked()
	notify := m.onExpire
	m.mu.Unlock()

	if notify != nil {
		notify()
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) clearLocked() {
	m.state = StateIdle
	m.bookingID = ""
	m.expiresAt = time.Time{}
}
