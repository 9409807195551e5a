package occupancy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
)

type fakeAPI struct {
	mu          sync.Mutex
	holdErr     error
	cancelErr   error
	holdTTL     time.Duration
	startCalls  int
	cancelCalls []string
}

func (f *fakeAPI) StartHold(_ context.Context, _ uint64, seats []grid.WireSeat) (model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.holdErr != nil {
		return model.Hold{}, f.holdErr
	}
	ttl := f.holdTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	return model.Hold{
		BookingID: "b-1",
		ExpiresAt: time.Now().UTC().Add(ttl),
		Seats:     seats,
	}, nil
}

func (f *fakeAPI) CancelHold(_ context.Context, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls = append(f.cancelCalls, bookingID)
	return f.cancelErr
}

type fakeBeacon struct {
	mu       sync.Mutex
	released []string
}

func (f *fakeBeacon) Release(bookingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, bookingID)
}

func (f *fakeBeacon) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

var someSeats = []grid.WireSeat{{Row: 1, Col: 1}, {Row: 1, Col: 2}}

func TestStartHoldTransitionsToHolding(t *testing.T) {
	m := NewManager(&fakeAPI{}, &fakeBeacon{}, 1, nil)

	hold, err := m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)
	assert.Equal(t, "b-1", hold.BookingID)
	assert.Equal(t, StateHolding, m.State())

	bid, _, ok := m.Hold()
	require.True(t, ok)
	assert.Equal(t, "b-1", bid)
}

func TestStartHoldGuards(t *testing.T) {
	m := NewManager(&fakeAPI{}, &fakeBeacon{}, 1, nil)

	_, err := m.StartHold(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSeats)

	_, err = m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)
	_, err = m.StartHold(context.Background(), someSeats)
	assert.ErrorIs(t, err, ErrNotIdle)
}

func TestStartHoldFailureStaysIdle(t *testing.T) {
	api := &fakeAPI{holdErr: errors.New("some seats are unavailable")}
	m := NewManager(api, &fakeBeacon{}, 1, nil)

	_, err := m.StartHold(context.Background(), someSeats)
	require.Error(t, err)
	assert.Equal(t, StateIdle, m.State())
	_, _, ok := m.Hold()
	assert.False(t, ok)
}

func TestCancelHoldForgetsLocallyEvenOnServerError(t *testing.T) {
	api := &fakeAPI{cancelErr: errors.New("network down")}
	m := NewManager(api, &fakeBeacon{}, 1, nil)

	_, err := m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)

	require.NoError(t, m.CancelHold(context.Background()), "release failure is not surfaced")
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, []string{"b-1"}, api.cancelCalls)

	assert.ErrorIs(t, m.CancelHold(context.Background()), ErrNotHolding)
}

func TestExpiryFiresExactlyOnce(t *testing.T) {
	var fired sync.WaitGroup
	fired.Add(1)
	count := 0
	var mu sync.Mutex

	api := &fakeAPI{holdTTL: 50 * time.Millisecond}
	m := NewManager(api, &fakeBeacon{}, 1, func() {
		mu.Lock()
		count++
		if count == 1 {
			fired.Done()
		}
		mu.Unlock()
	})

	_, err := m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)

	fired.Wait()
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, count, "expiry handler must run exactly once")
	mu.Unlock()
	assert.Equal(t, StateIdle, m.State())
	_, _, ok := m.Hold()
	assert.False(t, ok)
	// Expiry performs local cleanup only; no server release call.
	assert.Empty(t, api.cancelCalls)
}

func TestCancelStopsExpiryTimer(t *testing.T) {
	fired := make(chan struct{}, 1)
	api := &fakeAPI{holdTTL: 80 * time.Millisecond}
	m := NewManager(api, &fakeBeacon{}, 1, func() { fired <- struct{}{} })

	_, err := m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)
	require.NoError(t, m.CancelHold(context.Background()))

	select {
	case <-fired:
		t.Fatal("expiry fired after cancel")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReleaseOnExitIdempotentAcrossTriggers(t *testing.T) {
	beacon := &fakeBeacon{}
	m := NewManager(&fakeAPI{}, beacon, 1, nil)

	_, err := m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)

	// Route change, unload and back-navigation may all fire for one
	// abandonment; only the first sends.
	m.ReleaseOnExit()
	m.ReleaseOnExit()
	m.ReleaseOnExit()

	assert.Equal(t, []string{"b-1"}, beacon.calls())
	assert.Equal(t, StateIdle, m.State())
}

func TestReleaseOnExitWithoutHoldIsNoop(t *testing.T) {
	beacon := &fakeBeacon{}
	m := NewManager(&fakeAPI{}, beacon, 1, nil)
	m.ReleaseOnExit()
	assert.Empty(t, beacon.calls())
}

func TestLateHoldResponseAfterCloseIsReleased(t *testing.T) {
	beacon := &fakeBeacon{}
	m := NewManager(&fakeAPI{}, beacon, 1, nil)
	m.Close()

	_, err := m.StartHold(context.Background(), someSeats)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConfirmConsumesHold(t *testing.T) {
	beacon := &fakeBeacon{}
	m := NewManager(&fakeAPI{}, beacon, 1, nil)

	_, err := m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)

	require.NoError(t, m.BeginConfirm())
	assert.Equal(t, StateConfirming, m.State())

	m.FinishConfirm(true)
	assert.Equal(t, StateIdle, m.State())

	// Consumed, not abandoned: teardown must not release anything.
	m.ReleaseOnExit()
	assert.Empty(t, beacon.calls())
}

func TestFailedConfirmKeepsHold(t *testing.T) {
	m := NewManager(&fakeAPI{}, &fakeBeacon{}, 1, nil)
	_, err := m.StartHold(context.Background(), someSeats)
	require.NoError(t, err)

	require.NoError(t, m.BeginConfirm())
	m.FinishConfirm(false)
	assert.Equal(t, StateHolding, m.State())
}
