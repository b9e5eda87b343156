package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBroker struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{subs: map[string][]chan []byte{}}
}

func (b *memoryBroker) RealtimeChannel(ownerID, table string) string {
	return "sb:realtime:" + ownerID + ":" + table
}

func (b *memoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		ch <- payload
	}
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, func() error, error) {
	ch := make(chan []byte, 4)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()
	return ch, func() error { close(ch); return nil }, nil
}

func TestHubDeliversInsertsPerOwner(t *testing.T) {
	broker := newMemoryBroker()
	hub := NewHub(broker, nil, true)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	owner := uuid.New()
	events, closeFn, err := hub.Subscribe(ctx, owner, TableOrders)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	require.NoError(t, hub.PublishInsert(ctx, uuid.New(), TableOrders, map[string]string{"item": "other"}))
	require.NoError(t, hub.PublishInsert(ctx, owner, TableOrders, map[string]string{"item": "Cement"}))

	select {
	case event := <-events:
		assert.Equal(t, TableOrders, event.Table)
		assert.Equal(t, "INSERT", event.Type)
		var record map[string]string
		require.NoError(t, json.Unmarshal(event.Record, &record))
		assert.Equal(t, "Cement", record["item"])
	case <-ctx.Done():
		t.Fatal("expected an event")
	}
}

func TestHubTagsEventsWithProject(t *testing.T) {
	broker := newMemoryBroker()
	hub := NewHub(broker, nil, true)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	owner, site := uuid.New(), uuid.New()
	events, closeFn, err := hub.Subscribe(ctx, owner, TableOrders)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	require.NoError(t, hub.PublishInsert(ctx, owner, TableOrders, map[string]any{"item": "Sand", "project_id": site}))
	require.NoError(t, hub.PublishInsert(ctx, owner, TableOrders, map[string]any{"item": "Gravel"}))

	for _, want := range []*uuid.UUID{&site, nil} {
		select {
		case event := <-events:
			assert.Equal(t, want, event.ProjectID)
		case <-ctx.Done():
			t.Fatal("expected an event")
		}
	}
}

func TestHubDisabledIsNoop(t *testing.T) {
	hub := NewHub(newMemoryBroker(), nil, false)
	assert.False(t, hub.Enabled())
	assert.NoError(t, hub.PublishInsert(context.Background(), uuid.New(), TableNotifications, nil))

	_, _, err := hub.Subscribe(context.Background(), uuid.New(), TableNotifications)
	assert.Error(t, err)

	var nilHub *Hub
	assert.NoError(t, nilHub.PublishInsert(context.Background(), uuid.New(), TableOrders, nil))
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable("notifications")
	require.NoError(t, err)
	assert.Equal(t, TableNotifications, table)

	_, err = ParseTable("transactions")
	assert.Error(t, err)
}
