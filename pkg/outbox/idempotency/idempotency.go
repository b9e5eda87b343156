package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/redis"
)

const (
	markerPending = "pending"
	markerDone    = "done"

	defaultLease = 5 * time.Minute
)

// Claim is the outcome of trying to take an event for processing.
type Claim int

const (
	// Claimed means the caller owns the event until Complete or Release.
	Claimed Claim = iota
	// Duplicate means the event was already handled; ack it.
	Duplicate
	// InFlight means another delivery holds the lease; retry later.
	InFlight
)

func (c Claim) String() string {
	switch c {
	case Claimed:
		return "claimed"
	case Duplicate:
		return "duplicate"
	case InFlight:
		return "in_flight"
	default:
		return fmt.Sprintf("claim(%d)", int(c))
	}
}

type store interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager de-duplicates Pub/Sub deliveries per consumer. An event is first
// leased as pending and only marked done once the handler succeeds, so a
// worker that dies mid-handling lets the event through again after the lease.
// Keys look like sb:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store store
	ttl   time.Duration
	lease time.Duration
}

// NewManager keeps done markers for ttl and pending leases for lease. A zero
// lease uses five minutes.
func NewManager(s store, ttl, lease time.Duration) (*Manager, error) {
	if s == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 || lease < 0 {
		return nil, errors.New("ttl and lease must be non-negative")
	}
	if lease == 0 {
		lease = defaultLease
	}
	return &Manager{store: s, ttl: ttl, lease: lease}, nil
}

// Claim leases eventID for consumer.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (Claim, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return InFlight, err
	}
	ok, err := m.store.SetNX(ctx, key, markerPending, m.lease)
	if err != nil {
		return InFlight, fmt.Errorf("lease %s: %w", key, err)
	}
	if ok {
		return Claimed, nil
	}

	marker, err := m.store.Get(ctx, key)
	switch {
	case redis.IsMissing(err):
		// lease expired between the two calls
		return InFlight, nil
	case err != nil:
		return InFlight, fmt.Errorf("read %s: %w", key, err)
	case marker == markerDone:
		return Duplicate, nil
	default:
		return InFlight, nil
	}
}

// Complete marks a claimed event as handled for the manager's ttl.
func (m *Manager) Complete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, markerDone, m.ttl)
}

// Release drops a lease so the next delivery can claim the event.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
