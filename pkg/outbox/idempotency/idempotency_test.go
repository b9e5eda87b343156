package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type entry struct {
	value string
	ttl   time.Duration
}

type memoryStore struct {
	data     map[string]entry
	setNXErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]entry{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	e, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return e.value, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = entry{value: value.(string), ttl: ttl}
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setNXErr != nil {
		return false, m.setNXErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = entry{value: value.(string), ttl: ttl}
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "sb:idempotency:" + scope + ":" + id
}

func TestClaimLifecycle(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, 24*time.Hour, time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()
	eventID := uuid.New()
	key := "sb:idempotency:evt:site-alerts:" + eventID.String()

	if claim, err := manager.Claim(ctx, "site-alerts", eventID); err != nil || claim != Claimed {
		t.Fatalf("first claim = %v, %v", claim, err)
	}
	if got := store.data[key]; got.value != markerPending || got.ttl != time.Minute {
		t.Fatalf("unexpected lease %+v", got)
	}
	if claim, _ := manager.Claim(ctx, "site-alerts", eventID); claim != InFlight {
		t.Fatalf("concurrent delivery should see in-flight, got %v", claim)
	}

	if err := manager.Complete(ctx, "site-alerts", eventID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := store.data[key]; got.value != markerDone || got.ttl != 24*time.Hour {
		t.Fatalf("unexpected done marker %+v", got)
	}
	if claim, _ := manager.Claim(ctx, "site-alerts", eventID); claim != Duplicate {
		t.Fatalf("redelivery should be a duplicate, got %v", claim)
	}
}

func TestReleaseLetsRedeliveryClaim(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour, 0)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if manager.lease != defaultLease {
		t.Fatalf("expected default lease, got %v", manager.lease)
	}
	ctx := context.Background()
	eventID := uuid.New()

	if claim, _ := manager.Claim(ctx, "site-alerts", eventID); claim != Claimed {
		t.Fatalf("expected claim, got %v", claim)
	}
	if err := manager.Release(ctx, "site-alerts", eventID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if claim, _ := manager.Claim(ctx, "site-alerts", eventID); claim != Claimed {
		t.Fatalf("released event should be claimable, got %v", claim)
	}
}

func TestClaimConsumersAreIndependent(t *testing.T) {
	manager, _ := NewManager(newMemoryStore(), time.Hour, time.Minute)
	eventID := uuid.New()
	for _, consumer := range []string{"site-alerts", "stock-ledger"} {
		if claim, _ := manager.Claim(context.Background(), consumer, eventID); claim != Claimed {
			t.Fatalf("%s: expected claim, got %v", consumer, claim)
		}
	}
}

func TestClaimErrors(t *testing.T) {
	store := newMemoryStore()
	store.setNXErr = errors.New("connection refused")
	manager, _ := NewManager(store, time.Hour, time.Minute)

	if _, err := manager.Claim(context.Background(), "site-alerts", uuid.New()); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := manager.Claim(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected missing consumer error")
	}
	if err := manager.Complete(context.Background(), "site-alerts", uuid.Nil); err == nil {
		t.Fatal("expected missing event id error")
	}
	if _, err := NewManager(nil, time.Hour, 0); err == nil {
		t.Fatal("expected nil store error")
	}
	if _, err := NewManager(store, -time.Second, 0); err == nil {
		t.Fatal("expected negative ttl error")
	}
}
