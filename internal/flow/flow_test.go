package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
	"github.com/iliyamo/seat-booking-flow/internal/session"
	"github.com/iliyamo/seat-booking-flow/internal/stream"
)

type fakeService struct {
	mu           sync.Mutex
	holdErr      error
	payErr       error
	holdTTL      time.Duration
	nextBooking  int
	cancelled    []string
	beaconed     []string
	payments     []string
	couponResult model.Discount
}

func (f *fakeService) FetchLayout(context.Context, uint64) (grid.Layout, error) {
	return grid.Layout{
		Rows: 6,
		Cols: 6,
		SeatTypes: map[string]grid.SeatType{
			"STANDARD": {Label: "Standard", PriceCents: 10000},
		},
		Grades: []grid.GradeRange{{Grade: "STANDARD", FromRow: 0, ToRow: 5}},
	}, nil
}

func (f *fakeService) StartHold(_ context.Context, _ uint64, seats []grid.WireSeat) (model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holdErr != nil {
		return model.Hold{}, f.holdErr
	}
	ttl := f.holdTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	f.nextBooking++
	return model.Hold{
		BookingID: "b-1",
		ExpiresAt: time.Now().Add(ttl),
		Seats:     seats,
	}, nil
}

func (f *fakeService) CancelHold(_ context.Context, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, bookingID)
	return nil
}

func (f *fakeService) ValidateCoupon(_ context.Context, code string) (model.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code == "" {
		return model.Discount{Kind: model.DiscountNone}, nil
	}
	return f.couponResult, nil
}

func (f *fakeService) CreatePayment(_ context.Context, bookingID string, draft model.PaymentDraft) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payErr != nil {
		return model.Reservation{}, f.payErr
	}
	f.payments = append(f.payments, bookingID)
	return model.Reservation{ReservationID: 42, TotalCents: draft.TotalCents}, nil
}

func (f *fakeService) Release(bookingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beaconed = append(f.beaconed, bookingID)
}

func (f *fakeService) beacons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.beaconed...)
}

// fakeSubscriber hands the registered handlers back to the test so it can
// play the server's role.
type fakeSubscriber struct {
	mu       sync.Mutex
	handlers stream.Handlers
	stopped  bool
}

func (f *fakeSubscriber) Subscribe(_ context.Context, _ uint64, h stream.Handlers) (func(), error) {
	f.mu.Lock()
	f.handlers = h
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeSubscriber) push(u stream.Update) { f.handlers.OnUpdate(u) }

func (f *fakeSubscriber) snapshot(s stream.Snapshot) { f.handlers.OnSnapshot(s) }

type notices struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notices) Notify(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *notices) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type confirmAs bool

func (c confirmAs) Confirm(string) bool { return bool(c) }

func newTestFlow(t *testing.T, svc *fakeService, confirm bool) (*Flow, *fakeSubscriber, *notices, *session.MemoryStore) {
	t.Helper()
	sub := &fakeSubscriber{}
	n := &notices{}
	store := session.NewMemoryStore()
	f := New(Deps{
		API:       svc,
		Beacon:    svc,
		Stream:    sub,
		Store:     store,
		Notifier:  n,
		Confirmer: confirmAs(confirm),
	}, Config{ScheduleID: 1, SessionKey: "tab-1", MaxSelected: 3})
	require.NoError(t, f.Mount(context.Background()))
	sub.snapshot(stream.Snapshot{})
	return f, sub, n, store
}

func TestHappyPathThroughPayment(t *testing.T) {
	svc := &fakeService{couponResult: model.Discount{Kind: model.DiscountPercent, Percent: 50, CouponCode: "HALF"}}
	f, _, _, store := newTestFlow(t, svc, true)
	ctx := context.Background()

	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 1}))
	require.NoError(t, f.ConfirmSelection(ctx))
	assert.Equal(t, session.StepDiscountSelection, f.Step())

	require.NoError(t, f.ChooseDiscount(ctx, "HALF"))
	require.NoError(t, f.ProceedToPayment(ctx))
	require.Equal(t, session.StepPayment, f.Step())

	draft := f.Session().Draft
	require.NotNil(t, draft)
	assert.Equal(t, uint32(10000), draft.TotalCents)
	assert.Equal(t, "HALF", draft.CouponCode)

	res, err := f.Pay(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.ReservationID)
	assert.Equal(t, session.StepSeatSelection, f.Step())

	stored, err := store.Load(ctx, "tab-1")
	require.NoError(t, err)
	assert.Nil(t, stored, "successful payment clears the persisted session")
	assert.Empty(t, svc.beacons(), "a consumed hold is never beacon-released")
}

func TestSelectionLimitEnforcedByFlow(t *testing.T) {
	f, _, _, _ := newTestFlow(t, &fakeService{}, true)
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 1}))
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 2}))
	assert.ErrorIs(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 3}), ErrSelectionLimit)
	// Deselecting is always allowed at the bound.
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 2}))
}

func TestConflictEvictionDuringSelection(t *testing.T) {
	f, sub, n, _ := newTestFlow(t, &fakeService{}, true)
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 1}))

	// Another user takes wire (1,1) = internal (0,0).
	sub.push(stream.Update{Action: stream.ActionOccupied, Seats: []grid.WireSeat{{Row: 1, Col: 1}}})

	assert.Equal(t, []grid.Seat{{Row: 0, Col: 1}}, f.Selected())
	require.Len(t, n.all(), 1)
	assert.Contains(t, n.all()[0], "(0, 0)")
}

func TestHoldFailureSurfacedInlineSelectionKept(t *testing.T) {
	svc := &fakeService{holdErr: assert.AnError}
	f, _, _, _ := newTestFlow(t, svc, true)
	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))

	err := f.ConfirmSelection(context.Background())
	require.Error(t, err)
	assert.Equal(t, session.StepSeatSelection, f.Step())
	assert.Equal(t, []grid.Seat{{Row: 0, Col: 0}}, f.Selected(), "failed hold leaves the selection unchanged")
}

func TestBackFromDiscountRequiresConfirmation(t *testing.T) {
	svc := &fakeService{}
	f, _, _, _ := newTestFlow(t, svc, false) // user declines
	ctx := context.Background()

	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ConfirmSelection(ctx))

	assert.ErrorIs(t, f.Back(ctx), ErrDeclined)
	assert.Equal(t, session.StepDiscountSelection, f.Step(), "declined navigation is neutralized")
	assert.Empty(t, svc.cancelled)
}

func TestBackFromDiscountReleasesHold(t *testing.T) {
	svc := &fakeService{}
	f, _, _, _ := newTestFlow(t, svc, true)
	ctx := context.Background()

	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ConfirmSelection(ctx))
	require.NoError(t, f.Back(ctx))

	assert.Equal(t, session.StepSeatSelection, f.Step())
	assert.Equal(t, []string{"b-1"}, svc.cancelled)
	assert.Empty(t, f.Session().BookingID)
}

func TestBackFromPaymentKeepsHold(t *testing.T) {
	svc := &fakeService{}
	f, _, _, _ := newTestFlow(t, svc, true)
	ctx := context.Background()

	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ConfirmSelection(ctx))
	require.NoError(t, f.ChooseDiscount(ctx, ""))
	require.NoError(t, f.ProceedToPayment(ctx))

	require.NoError(t, f.Back(ctx))
	s := f.Session()
	assert.Equal(t, session.StepDiscountSelection, s.Step)
	assert.Equal(t, "b-1", s.BookingID, "the occupancy hold is preserved")
	assert.Nil(t, s.Draft)
	assert.Empty(t, svc.cancelled)
}

func TestExpiryResetsSessionOnce(t *testing.T) {
	svc := &fakeService{holdTTL: 60 * time.Millisecond}
	f, _, n, _ := newTestFlow(t, svc, true)
	ctx := context.Background()

	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ConfirmSelection(ctx))
	require.Equal(t, session.StepDiscountSelection, f.Step())

	require.Eventually(t, func() bool {
		return f.Step() == session.StepSeatSelection
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, f.Session().BookingID)
	expiryNotices := 0
	for _, msg := range n.all() {
		if msg == "your seat hold expired; please select seats again" {
			expiryNotices++
		}
	}
	assert.Equal(t, 1, expiryNotices, "expiry handler runs exactly once")
}

func TestAbandonTriggersAreIdempotent(t *testing.T) {
	svc := &fakeService{}
	f, _, _, _ := newTestFlow(t, svc, true)
	ctx := context.Background()

	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ConfirmSelection(ctx))

	// Route change, unload and back-out may all fire.
	f.Abandon(ctx)
	f.Abandon(ctx)
	f.Abandon(ctx)

	assert.Equal(t, []string{"b-1"}, svc.beacons(), "exactly one teardown release")
	assert.Equal(t, session.StepSeatSelection, f.Step())
}

func TestCloseStopsStreamAndReleases(t *testing.T) {
	svc := &fakeService{}
	f, sub, _, _ := newTestFlow(t, svc, true)
	ctx := context.Background()

	require.NoError(t, f.ToggleSeat(grid.Seat{Row: 0, Col: 0}))
	require.NoError(t, f.ConfirmSelection(ctx))

	f.Close(ctx)
	f.Close(ctx) // safe to repeat

	sub.mu.Lock()
	stopped := sub.stopped
	sub.mu.Unlock()
	assert.True(t, stopped)
	assert.Equal(t, []string{"b-1"}, svc.beacons())
}

func TestRestoredSessionResumesCountdown(t *testing.T) {
	svc := &fakeService{}
	store := session.NewMemoryStore()
	ctx := context.Background()

	exp := time.Now().Add(80 * time.Millisecond)
	require.NoError(t, store.Save(ctx, "tab-1", session.Session{
		Step:      session.StepDiscountSelection,
		BookingID: "b-old",
		ExpiresAt: &exp,
		Seats:     []grid.WireSeat{{Row: 1, Col: 1}},
	}))

	sub := &fakeSubscriber{}
	n := &notices{}
	f := New(Deps{API: svc, Beacon: svc, Stream: sub, Store: store, Notifier: n, Confirmer: confirmAs(true)},
		Config{ScheduleID: 1, SessionKey: "tab-1"})
	require.NoError(t, f.Mount(ctx))

	require.Equal(t, session.StepDiscountSelection, f.Step(), "a live session restores to its exact step")

	// The restored hold's countdown resumes and still expires.
	require.Eventually(t, func() bool {
		return f.Step() == session.StepSeatSelection
	}, 2*time.Second, 10*time.Millisecond)
}
