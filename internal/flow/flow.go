// Package flow wires one tab's booking flow together: the seat grid, the
// availability stream, the occupancy lifecycle and the session step
// machine.  Every mutation — stream event, timer fire, user command — is
// serialized through one mutex, the Go rendering of the single UI event
// loop the protocol assumes; handler bodies stay short and network calls
// happen outside the lock.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
	"github.com/iliyamo/seat-booking-flow/internal/occupancy"
	"github.com/iliyamo/seat-booking-flow/internal/session"
	"github.com/iliyamo/seat-booking-flow/internal/stream"
)

// API is everything the flow needs from the booking service.
type API interface {
	occupancy.API
	FetchLayout(ctx context.Context, scheduleID uint64) (grid.Layout, error)
	ValidateCoupon(ctx context.Context, code string) (model.Discount, error)
	CreatePayment(ctx context.Context, bookingID string, draft model.PaymentDraft) (model.Reservation, error)
}

// Confirmer asks the user to confirm an irreversible action, such as
// deliberately giving up a hold to change seats.
type Confirmer interface {
	Confirm(prompt string) bool
}

var (
	// ErrNotMounted is returned by operations before Mount succeeds.
	ErrNotMounted = errors.New("flow: not mounted")
	// ErrSelectionLimit is returned when a toggle would exceed the
	// configured selection bound.
	ErrSelectionLimit = errors.New("flow: selection limit reached")
	// ErrSeatUnavailable is returned when toggling a seat that is
	// disabled, held or reserved.
	ErrSeatUnavailable = errors.New("flow: seat is not selectable")
	// ErrDeclined is returned when the user declines a confirmation
	// prompt; the caller neutralizes the navigation that triggered it.
	ErrDeclined = errors.New("flow: declined by user")
)

// Deps are the collaborators a Flow is built from.
type Deps struct {
	API       API
	Beacon    occupancy.Releaser
	Stream    stream.Subscriber
	Store     session.Store
	Notifier  stream.Notifier
	Confirmer Confirmer
}

// Config identifies the flow and bounds the selection.
type Config struct {
	ScheduleID  uint64
	SessionKey  string // per-tab storage key
	MaxSelected int    // 0 means the default of 8
}

// Flow owns the booking state for one tab and one schedule.
type Flow struct {
	deps Deps
	cfg  Config

	mu         sync.Mutex
	grid       *grid.Grid
	channel    *stream.Channel
	machine    *session.Machine
	occ        *occupancy.Manager
	stopStream func()
	mounted    bool
	closed     bool
}

// New builds an unmounted Flow.
func New(deps Deps, cfg Config) *Flow {
	if cfg.MaxSelected <= 0 {
		cfg.MaxSelected = 8
	}
	return &Flow{deps: deps, cfg: cfg}
}

// Mount fetches the static layout, restores the persisted session (forcing
// a reset when it is stale), re-adopts a restored hold so its countdown
// resumes, and subscribes to the availability stream.
func (f *Flow) Mount(ctx context.Context) error {
	layout, err := f.deps.API.FetchLayout(ctx, f.cfg.ScheduleID)
	if err != nil {
		return fmt.Errorf("mount: fetch layout: %w", err)
	}

	g := grid.New(layout)
	machine, err := session.Restore(ctx, f.deps.Store, f.cfg.SessionKey, g.Layout())
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	f.mu.Lock()
	f.grid = g
	f.machine = machine
	f.channel = stream.NewChannel(g, f.deps.Notifier)
	f.occ = occupancy.NewManager(f.deps.API, f.deps.Beacon, f.cfg.ScheduleID, f.expired)
	f.mounted = true
	f.mu.Unlock()

	if s := machine.Snapshot(); s.BookingID != "" && s.ExpiresAt != nil {
		if err := f.occ.Adopt(s.BookingID, *s.ExpiresAt); err != nil {
			log.Printf("flow: adopt restored hold %s: %v", s.BookingID, err)
		}
	}

	stop, err := f.deps.Stream.Subscribe(ctx, f.cfg.ScheduleID, stream.Handlers{
		OnSnapshot: func(s stream.Snapshot) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.channel.ApplySnapshot(s)
		},
		OnUpdate: func(u stream.Update) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.channel.ApplyUpdate(u)
		},
		OnClose: func(err error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.channel.Closed(err)
		},
	})
	if err != nil {
		return fmt.Errorf("mount: subscribe: %w", err)
	}
	f.mu.Lock()
	f.stopStream = stop
	f.mu.Unlock()
	return nil
}

// Step returns the current booking step.
func (f *Flow) Step() session.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return session.StepSeatSelection
	}
	return f.machine.Step()
}

// Session returns a copy of the session state.
func (f *Flow) Session() session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return session.Session{Step: session.StepSeatSelection}
	}
	return f.machine.Snapshot()
}

// Selected returns the current local selection.
func (f *Flow) Selected() []grid.Seat {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return nil
	}
	return f.grid.Selected()
}

// SeatStatus reports how a seat should be rendered.
func (f *Flow) SeatStatus(s grid.Seat) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return grid.StatusFree
	}
	return f.grid.Status(s)
}

// ToggleSeat flips a seat in the local selection.  Valid only during seat
// selection; the selection bound is enforced here, not by the grid.
func (f *Flow) ToggleSeat(s grid.Seat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return ErrNotMounted
	}
	if f.machine.Step() != session.StepSeatSelection {
		return session.ErrWrongStep
	}
	if f.grid.SelectedCount() >= f.cfg.MaxSelected && f.grid.Status(s) != grid.StatusSelected {
		return ErrSelectionLimit
	}
	if !f.grid.Toggle(s) {
		return ErrSeatUnavailable
	}
	return nil
}

// ConfirmSelection converts the local selection into a server-side hold
// and advances to discount selection.  A rejection leaves the selection
// untouched and is surfaced inline to the caller.  The hold response is
// applied against current state: the session records the seats the server
// granted, not the selection as it was when the request left.
func (f *Flow) ConfirmSelection(ctx context.Context) error {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return ErrNotMounted
	}
	seats := f.grid.Selected()
	f.mu.Unlock()

	hold, err := f.occ.StartHold(ctx, grid.ToWireAll(seats))
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrNotMounted
	}
	if err := f.machine.SetHold(ctx, hold); err != nil {
		return err
	}
	return f.machine.Advance(ctx)
}

// ChooseDiscount validates a coupon code (empty means no discount) and
// records the result as the finalized discount selection.
func (f *Flow) ChooseDiscount(ctx context.Context, code string) error {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return ErrNotMounted
	}
	if f.machine.Step() != session.StepDiscountSelection {
		f.mu.Unlock()
		return session.ErrWrongStep
	}
	f.mu.Unlock()

	discount, err := f.deps.API.ValidateCoupon(ctx, code)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrNotMounted
	}
	return f.machine.SetDiscount(ctx, discount)
}

// ProceedToPayment freezes the payment draft and enters the payment step.
func (f *Flow) ProceedToPayment(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted {
		return ErrNotMounted
	}
	return f.machine.Advance(ctx)
}

// Pay submits the frozen draft.  On success the hold is consumed, the
// session is cleared and the confirmed reservation is returned.
func (f *Flow) Pay(ctx context.Context) (model.Reservation, error) {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return model.Reservation{}, ErrNotMounted
	}
	s := f.machine.Snapshot()
	f.mu.Unlock()

	if s.Step != session.StepPayment || s.Draft == nil {
		return model.Reservation{}, session.ErrWrongStep
	}
	if err := f.occ.BeginConfirm(); err != nil {
		return model.Reservation{}, err
	}

	res, err := f.deps.API.CreatePayment(ctx, s.BookingID, *s.Draft)
	if err != nil {
		f.occ.FinishConfirm(false)
		return model.Reservation{}, err
	}
	f.occ.FinishConfirm(true)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.machine.Complete(ctx); err != nil {
		log.Printf("flow: clear session after payment: %v", err)
	}
	return res, nil
}

// Back moves one step backwards.  Leaving discount selection destroys the
// hold, so it requires explicit confirmation; ErrDeclined tells the caller
// to neutralize the navigation (the popstate-interception contract).
// Retreating from payment keeps the hold and only drops the frozen draft.
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return ErrNotMounted
	}
	step := f.machine.Step()
	f.mu.Unlock()

	switch step {
	case session.StepPayment:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.machine.Retreat(ctx)
	case session.StepDiscountSelection:
		if !f.deps.Confirmer.Confirm("Going back releases your held seats. Continue?") {
			return ErrDeclined
		}
		if err := f.occ.CancelHold(ctx); err != nil && !errors.Is(err, occupancy.ErrNotHolding) {
			log.Printf("flow: cancel hold on retreat: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.machine.Retreat(ctx)
	default:
		return session.ErrAtFirstStep
	}
}

// Abandon is the shared target of the three independent abandonment
// triggers: route change out of the flow, tab/window unload and
// back-navigation past the entry point.  More than one may fire for a
// single abandonment, so the whole path is idempotent: the teardown
// release is sent at most once and resetting an already-fresh session is
// harmless.
func (f *Flow) Abandon(ctx context.Context) {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return
	}
	occ := f.occ
	f.mu.Unlock()

	occ.ReleaseOnExit()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.machine.Reset(ctx); err != nil {
		log.Printf("flow: reset session on abandon: %v", err)
	}
}

// Close tears the flow down when the view unmounts: the stream
// subscription stops, any hold is released best-effort and late network
// responses become no-ops.  Safe to call more than once.
func (f *Flow) Close(ctx context.Context) {
	f.mu.Lock()
	if !f.mounted || f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	stop := f.stopStream
	occ := f.occ
	f.mu.Unlock()

	if stop != nil {
		stop()
	}
	occ.Close()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.machine.Reset(ctx); err != nil {
		log.Printf("flow: reset session on close: %v", err)
	}
}

// expired is the occupancy manager's expiry callback: local cleanup plus a
// user notice that time ran out.  The selection is kept — the seats may
// well still be free, and the next availability event corrects the grid if
// they are not.
func (f *Flow) expired() {
	f.mu.Lock()
	if err := f.machine.Reset(context.Background()); err != nil {
		log.Printf("flow: reset session on expiry: %v", err)
	}
	f.mu.Unlock()
	f.deps.Notifier.Notify("your seat hold expired; please select seats again")
}
