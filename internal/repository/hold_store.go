package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/model"
)

// ErrHoldNotFound is returned when a booking id has no live hold.  The
// release path treats this as success: an already-expired or
// already-released hold needs no further work.
var ErrHoldNotFound = errors.New("hold not found")

// ErrSeatsUnavailable is returned when at least one requested seat is
// held or reserved by someone else.  The unavailable seats accompany
// the error so the handler can put them in the 409 body.
var ErrSeatsUnavailable = fmt.Errorf("seats unavailable: %w", ErrConflict)

// HoldStore keeps seat holds in Redis.  Availability is expressed
// through three key families, all keyed by wire (1-based) coordinates:
//
//	hold:{schedule}:{row}:{col} -> booking id, TTL = hold window
//	booking:{id}                -> JSON HoldRecord, TTL = window + grace
//	reserved:{schedule}         -> set of "row:col" members, no TTL
//
// A seat is takeable when its hold key is absent and it is not in the
// reserved set.  SET NX on the per-seat key is the only acquisition
// primitive, so two concurrent hold requests can never both win a seat.
// The TTL on the per-seat keys means a hold dies on schedule even if
// every release path is missed; the deadlines zset exists only so the
// sweeper can publish the matching RELEASED event.
type HoldStore struct {
	rdb   *redis.Client
	ttl   time.Duration
	grace time.Duration
}

const deadlinesKey = "holds:deadlines"

// NewHoldStore returns a HoldStore with the given hold window.
func NewHoldStore(rdb *redis.Client, ttl time.Duration) *HoldStore {
	return &HoldStore{rdb: rdb, ttl: ttl, grace: time.Minute}
}

// TTL reports the configured hold window.
func (s *HoldStore) TTL() time.Duration { return s.ttl }

func seatKey(scheduleID uint64, w grid.WireSeat) string {
	return fmt.Sprintf("hold:%d:%d:%d", scheduleID, w.Row, w.Col)
}

func bookingKey(id string) string { return "booking:" + id }

func reservedKey(scheduleID uint64) string {
	return fmt.Sprintf("reserved:%d", scheduleID)
}

func member(w grid.WireSeat) string { return fmt.Sprintf("%d:%d", w.Row, w.Col) }

// Create attempts to hold all requested seats atomically-enough: each
// seat is acquired with SET NX and on any conflict every acquired key
// is rolled back, so a request either holds all its seats or none.
// The second return value lists the conflicting seats when the error
// is ErrSeatsUnavailable.
func (s *HoldStore) Create(ctx context.Context, userID, scheduleID uint64, seats []grid.WireSeat) (model.HoldRecord, []grid.WireSeat, error) {
	id := uuid.NewString()

	// Reserved seats can never be held, check them up front.
	members := make([]string, len(seats))
	for i, w := range seats {
		members[i] = member(w)
	}
	hits, err := s.rdb.SMIsMember(ctx, reservedKey(scheduleID), toAny(members)...).Result()
	if err != nil {
		return model.HoldRecord{}, nil, err
	}
	var unavailable []grid.WireSeat
	for i, hit := range hits {
		if hit {
			unavailable = append(unavailable, seats[i])
		}
	}
	if len(unavailable) > 0 {
		return model.HoldRecord{}, unavailable, ErrSeatsUnavailable
	}

	var acquired []string
	for _, w := range seats {
		ok, err := s.rdb.SetNX(ctx, seatKey(scheduleID, w), id, s.ttl).Result()
		if err != nil {
			s.rdb.Del(ctx, acquired...)
			return model.HoldRecord{}, nil, err
		}
		if !ok {
			unavailable = append(unavailable, w)
			continue
		}
		acquired = append(acquired, seatKey(scheduleID, w))
	}
	if len(unavailable) > 0 {
		if len(acquired) > 0 {
			s.rdb.Del(ctx, acquired...)
		}
		return model.HoldRecord{}, unavailable, ErrSeatsUnavailable
	}

	rec := model.HoldRecord{
		BookingID:  id,
		UserID:     userID,
		ScheduleID: scheduleID,
		Seats:      seats,
		ExpiresAt:  time.Now().UTC().Add(s.ttl),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		s.rdb.Del(ctx, acquired...)
		return model.HoldRecord{}, nil, err
	}
	// The booking record outlives the seat keys slightly so the sweeper
	// can still read the seat list for its RELEASED event.
	if err := s.rdb.Set(ctx, bookingKey(id), payload, s.ttl+s.grace).Err(); err != nil {
		s.rdb.Del(ctx, acquired...)
		return model.HoldRecord{}, nil, err
	}
	if err := s.rdb.ZAdd(ctx, deadlinesKey, redis.Z{
		Score:  float64(rec.ExpiresAt.Unix()),
		Member: id,
	}).Err(); err != nil {
		s.rdb.Del(ctx, append(acquired, bookingKey(id))...)
		return model.HoldRecord{}, nil, err
	}
	return rec, nil, nil
}

// Get fetches a live hold record by booking id.
func (s *HoldStore) Get(ctx context.Context, bookingID string) (model.HoldRecord, error) {
	raw, err := s.rdb.Get(ctx, bookingKey(bookingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.HoldRecord{}, ErrHoldNotFound
	}
	if err != nil {
		return model.HoldRecord{}, err
	}
	var rec model.HoldRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.HoldRecord{}, err
	}
	return rec, nil
}

// GetOwned fetches a live hold and verifies it belongs to userID,
// returning ErrForbidden otherwise.  Hold mutations on behalf of an
// authenticated caller go through this instead of Get.
func (s *HoldStore) GetOwned(ctx context.Context, bookingID string, userID uint64) (model.HoldRecord, error) {
	rec, err := s.Get(ctx, bookingID)
	if err != nil {
		return model.HoldRecord{}, err
	}
	if rec.UserID != userID {
		return model.HoldRecord{}, ErrForbidden
	}
	return rec, nil
}

// Release frees the seats of a hold.  Unknown booking ids report
// ErrHoldNotFound, which release handlers treat as already done.
func (s *HoldStore) Release(ctx context.Context, bookingID string) (model.HoldRecord, error) {
	rec, err := s.Get(ctx, bookingID)
	if err != nil {
		return model.HoldRecord{}, err
	}
	keys := make([]string, 0, len(rec.Seats)+1)
	for _, w := range rec.Seats {
		keys = append(keys, seatKey(rec.ScheduleID, w))
	}
	keys = append(keys, bookingKey(bookingID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return model.HoldRecord{}, err
	}
	s.rdb.ZRem(ctx, deadlinesKey, bookingID)
	return rec, nil
}

// Confirm converts a hold into reserved seats: the seats join the
// schedule's reserved set and the hold keys disappear.  The caller is
// expected to have written the durable reservation row first.
func (s *HoldStore) Confirm(ctx context.Context, bookingID string) (model.HoldRecord, error) {
	rec, err := s.Get(ctx, bookingID)
	if err != nil {
		return model.HoldRecord{}, err
	}
	members := make([]interface{}, 0, len(rec.Seats))
	keys := make([]string, 0, len(rec.Seats)+1)
	for _, w := range rec.Seats {
		members = append(members, member(w))
		keys = append(keys, seatKey(rec.ScheduleID, w))
	}
	if err := s.rdb.SAdd(ctx, reservedKey(rec.ScheduleID), members...).Err(); err != nil {
		return model.HoldRecord{}, err
	}
	keys = append(keys, bookingKey(bookingID))
	s.rdb.Del(ctx, keys...)
	s.rdb.ZRem(ctx, deadlinesKey, bookingID)
	return rec, nil
}

// SweepExpired collects holds whose deadline has passed, removes their
// remaining keys and returns the records so the caller can publish
// RELEASED events.  Seat keys usually expired on their own already;
// the sweep exists for the event, not for correctness.
func (s *HoldStore) SweepExpired(ctx context.Context, now time.Time) ([]model.HoldRecord, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return nil, err
	}
	var expired []model.HoldRecord
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err == nil {
			expired = append(expired, rec)
			s.rdb.Del(ctx, bookingKey(id))
		} else if !errors.Is(err, ErrHoldNotFound) {
			return expired, err
		}
		s.rdb.ZRem(ctx, deadlinesKey, id)
	}
	return expired, nil
}

// SeedReserved adds already-sold seats to a schedule's reserved set.
// Called on startup with the confirmed seats from MySQL so a fresh
// Redis starts from the durable truth.
func (s *HoldStore) SeedReserved(ctx context.Context, scheduleID uint64, seats []grid.WireSeat) error {
	if len(seats) == 0 {
		return nil
	}
	members := make([]interface{}, len(seats))
	for i, w := range seats {
		members[i] = member(w)
	}
	return s.rdb.SAdd(ctx, reservedKey(scheduleID), members...).Err()
}

// Reserved returns a schedule's reserved seats in wire coordinates.
func (s *HoldStore) Reserved(ctx context.Context, scheduleID uint64) ([]grid.WireSeat, error) {
	members, err := s.rdb.SMembers(ctx, reservedKey(scheduleID)).Result()
	if err != nil {
		return nil, err
	}
	seats := make([]grid.WireSeat, 0, len(members))
	for _, m := range members {
		var w grid.WireSeat
		if _, err := fmt.Sscanf(m, "%d:%d", &w.Row, &w.Col); err != nil {
			continue
		}
		seats = append(seats, w)
	}
	return seats, nil
}

// Pending returns the seats currently under a live hold for a schedule
// by scanning the per-seat keys.  Snapshot assembly on stream connect
// is the only caller, so the SCAN cost is acceptable.
func (s *HoldStore) Pending(ctx context.Context, scheduleID uint64) ([]grid.WireSeat, error) {
	var (
		seats  []grid.WireSeat
		cursor uint64
	)
	pattern := fmt.Sprintf("hold:%d:*", scheduleID)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			var sched uint64
			var w grid.WireSeat
			if _, err := fmt.Sscanf(k, "hold:%d:%d:%d", &sched, &w.Row, &w.Col); err != nil {
				continue
			}
			seats = append(seats, w)
		}
		if next == 0 {
			return seats, nil
		}
		cursor = next
	}
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
