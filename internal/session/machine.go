// Package session implements the booking step machine: seat selection →
// discount selection → payment, with guarded transitions, step-scoped
// payloads and persistence through a pluggable store so a reload mid-flow
// restores the exact step.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
)

// Step is the current position in the linear booking flow.
type Step string

const (
	StepSeatSelection     Step = "SEAT_SELECTION"
	StepDiscountSelection Step = "DISCOUNT_SELECTION"
	StepPayment           Step = "PAYMENT"
)

var (
	// ErrNoHold guards leaving seat selection without a successful hold.
	ErrNoHold = errors.New("session: cannot advance without an active hold")
	// ErrNoDiscount guards leaving discount selection before a discount
	// result has been finalized.
	ErrNoDiscount = errors.New("session: cannot advance without a finalized discount")
	// ErrAtLastStep is returned by Advance from the payment step.
	ErrAtLastStep = errors.New("session: already at the payment step")
	// ErrAtFirstStep is returned by Retreat from seat selection.
	ErrAtFirstStep = errors.New("session: already at seat selection")
	// ErrWrongStep is returned when a payload setter is used on a step it
	// does not belong to.
	ErrWrongStep = errors.New("session: operation not valid for current step")
)

// Session is the full step-scoped state persisted after every transition.
// It is exclusively owned by one booking flow; nothing else mutates it.
type Session struct {
	Step      Step                `json:"step"`
	BookingID string              `json:"booking_id,omitempty"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
	Seats     []grid.WireSeat     `json:"seats,omitempty"`
	Discount  *model.Discount     `json:"discount,omitempty"`
	Draft     *model.PaymentDraft `json:"payment_draft,omitempty"`
}

func fresh() Session {
	return Session{Step: StepSeatSelection}
}

// Store is the persistence port for sessions.  Load returns nil (no error)
// when nothing is stored under the key.
type Store interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s Session) error
	Clear(ctx context.Context, key string) error
}

// Pricer resolves grade and price for a seat; *grid.Layout satisfies it.
type Pricer interface {
	GradeOf(s grid.Seat) (string, bool)
	PriceOf(s grid.Seat) (uint32, bool)
}

// Machine drives the booking session.  It is not safe for concurrent use;
// the owning flow serializes access exactly as it does for the grid.
type Machine struct {
	store  Store
	key    string
	pricer Pricer
	s      Session
}

// Restore loads the persisted session for key, or starts a fresh one.  A
// stored session whose step implies an active hold but which carries no
// bookingId — or whose hold deadline has already passed — is stale and is
// forced back to seat selection rather than rendered inconsistently.
func Restore(ctx context.Context, store Store, key string, pricer Pricer) (*Machine, error) {
	m := &Machine{store: store, key: key, pricer: pricer, s: fresh()}

	stored, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if stored == nil {
		return m, m.persist(ctx)
	}

	m.s = *stored
	if m.stale() {
		m.s = fresh()
	}
	return m, m.persist(ctx)
}

func (m *Machine) stale() bool {
	switch m.s.Step {
	case StepSeatSelection:
		return false
	case StepDiscountSelection, StepPayment:
		if m.s.BookingID == "" {
			return true
		}
		if m.s.ExpiresAt != nil && !m.s.ExpiresAt.After(time.Now()) {
			return true
		}
		if m.s.Step == StepPayment && m.s.Draft == nil {
			return true
		}
		return false
	default:
		// Unknown step value in storage: treat as corrupt.
		return true
	}
}

// Step returns the current step.
func (m *Machine) Step() Step { return m.s.Step }

// Snapshot returns a copy of the session state.
func (m *Machine) Snapshot() Session { return m.s }

// SetHold records a successful hold while in seat selection: the booking
// id, the server deadline and the granted seat list (which is the
// authoritative snapshot even if the local selection moved meanwhile).
func (m *Machine) SetHold(ctx context.Context, hold model.Hold) error {
	if m.s.Step != StepSeatSelection {
		return ErrWrongStep
	}
	exp := hold.ExpiresAt
	m.s.BookingID = hold.BookingID
	m.s.ExpiresAt = &exp
	m.s.Seats = hold.Seats
	return m.persist(ctx)
}

// SetDiscount records a finalized discount result while in discount
// selection.  A "no coupon" choice is a valid result.
func (m *Machine) SetDiscount(ctx context.Context, d model.Discount) error {
	if m.s.Step != StepDiscountSelection {
		return ErrWrongStep
	}
	m.s.Discount = &d
	return m.persist(ctx)
}

// Advance moves one step forward.  Leaving seat selection requires a hold;
// leaving discount selection requires a finalized discount and freezes the
// payment draft from the held seats and discount result.  The draft is
// never recomputed afterwards, so the user sees one total at checkout.
func (m *Machine) Advance(ctx context.Context) error {
	switch m.s.Step {
	case StepSeatSelection:
		if m.s.BookingID == "" {
			return ErrNoHold
		}
		m.s.Step = StepDiscountSelection
	case StepDiscountSelection:
		if m.s.Discount == nil {
			return ErrNoDiscount
		}
		draft, err := m.buildDraft()
		if err != nil {
			return err
		}
		m.s.Draft = &draft
		m.s.Step = StepPayment
	default:
		return ErrAtLastStep
	}
	return m.persist(ctx)
}

// Retreat moves one step back.  From payment only the frozen draft is
// cleared — the hold survives, the seats are still held.  From discount
// selection the hold payload is cleared too; the caller must have released
// the hold (with user confirmation) before calling this.
func (m *Machine) Retreat(ctx context.Context) error {
	switch m.s.Step {
	case StepPayment:
		m.s.Draft = nil
		m.s.Step = StepDiscountSelection
	case StepDiscountSelection:
		m.s.BookingID = ""
		m.s.ExpiresAt = nil
		m.s.Seats = nil
		m.s.Discount = nil
		m.s.Step = StepSeatSelection
	default:
		return ErrAtFirstStep
	}
	return m.persist(ctx)
}

// Reset returns to seat selection with all payloads cleared.  Called on
// detected abandonment, hold expiry and back-navigation past the flow's
// entry point.
func (m *Machine) Reset(ctx context.Context) error {
	m.s = fresh()
	return m.persist(ctx)
}

// Complete clears the session after a successful payment submission; the
// stored copy is removed entirely.
func (m *Machine) Complete(ctx context.Context) error {
	m.s = fresh()
	if err := m.store.Clear(ctx, m.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Machine) buildDraft() (model.PaymentDraft, error) {
	draft := model.PaymentDraft{Items: make([]model.LineItem, 0, len(m.s.Seats))}
	for _, w := range m.s.Seats {
		s := grid.FromWire(w)
		grade, ok := m.pricer.GradeOf(s)
		if !ok {
			return model.PaymentDraft{}, fmt.Errorf("session: no grade for seat %v", s)
		}
		price, ok := m.pricer.PriceOf(s)
		if !ok {
			return model.PaymentDraft{}, fmt.Errorf("session: no price for seat %v", s)
		}
		draft.Items = append(draft.Items, model.LineItem{Seat: w, Grade: grade, PriceCents: price})
		draft.SubtotalCents += price
	}
	if m.s.Discount != nil {
		draft.CouponCode = m.s.Discount.CouponCode
		draft.DiscountCents = m.s.Discount.AmountOff(draft.SubtotalCents)
	}
	draft.TotalCents = draft.SubtotalCents - draft.DiscountCents
	return draft, nil
}

// persist writes the session through the store after a transition.  The
// in-memory state is already advanced when this fails; the caller decides
// whether a persistence failure is fatal (it is not for the in-tab flow,
// which only loses reload recovery).
func (m *Machine) persist(ctx context.Context) error {
	if err := m.store.Save(ctx, m.key, m.s); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}
