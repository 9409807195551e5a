package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const seatExchange = "seat.events"

// Publisher sends SeatEvents to the seat.events fanout exchange over a
// long-lived connection, reconnecting lazily when the channel dies.
// With an empty broker URL the publisher runs in local mode and hands
// events straight to the fallback function, so a single-instance
// deployment works without a broker.
type Publisher struct {
	url   string
	local func(SeatEvent)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher builds a Publisher. local receives every event when url
// is empty; it may be nil otherwise.
func NewPublisher(url string, local func(SeatEvent)) *Publisher {
	return &Publisher{url: url, local: local}
}

// PublishSeatEvent fans the event out to all server instances. Failures
// are logged and returned; callers treat the bus as best-effort since
// availability self-corrects via snapshots on reconnect.
func (p *Publisher) PublishSeatEvent(ctx context.Context, ev SeatEvent) error {
	if p.url == "" {
		if p.local != nil {
			p.local(ev)
		}
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal seat event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, seatExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
	if err != nil {
		// Drop the dead channel so the next publish redials.
		p.closeLocked()
		log.Printf("seat-publisher: publish failed: %v", err)
		return err
	}
	return nil
}

// PublishBookingConfirmed puts a confirmation on the durable
// booking.confirmed queue over the same pooled connection seat events
// use.  Without a broker the event is only logged; the reservation row
// in MySQL is already the durable record.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	if p.url == "" {
		log.Printf("booking-publisher: reservation %d confirmed (no broker configured)", ev.ReservationID)
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(bookingQueueName, true, false, false, false, nil); err != nil {
		p.closeLocked()
		return fmt.Errorf("declare queue: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", bookingQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		log.Printf("booking-publisher: publish failed: %v", err)
		return err
	}
	return nil
}

// Close shuts the broker connection down.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	// Transient fanout: late joiners recover state from the snapshot,
	// not from replayed events.
	if err := ch.ExchangeDeclare(seatExchange, "fanout", false, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
