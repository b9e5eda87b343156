package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/metrics"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/registry"
)

func TestRelayBatchRetriesAndPublishesIndependentAggregates(t *testing.T) {
	first := outboxRow(t, enums.EventMaterialRequestApproved, uuid.New(), 0)
	second := outboxRow(t, enums.EventOrderDelivered, uuid.New(), 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{errs: []error{errors.New("unavailable"), nil}}
	relay := newTestRelay(t, repo, pub, &fakeRegistry{}, config.OutboxConfig{MaxAttempts: 5})

	drained, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, drained)
	assert.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, repo.published)
	assert.Empty(t, repo.parked)
	assert.Equal(t, []string{first.AggregateID.String()}, pub.resumed)
}

func TestRelayBatchDefersLaterRowsOfFailedAggregate(t *testing.T) {
	orderID := uuid.New()
	created := outboxRow(t, enums.EventMaterialRequestApproved, orderID, 0)
	delivered := outboxRow(t, enums.EventOrderDelivered, orderID, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{created, delivered}}
	pub := &fakePublisher{errs: []error{errors.New("deadline exceeded")}}
	relay := newTestRelay(t, repo, pub, &fakeRegistry{}, config.OutboxConfig{MaxAttempts: 5})

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, pub.sent, 1, "second row of the aggregate must wait")
	assert.Equal(t, []uuid.UUID{created.ID}, repo.failed)
	assert.Empty(t, repo.published)
}

func TestRelaySetsOrderingKeyAndAttributes(t *testing.T) {
	row := outboxRow(t, enums.EventIssueReported, uuid.New(), 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{}
	relay := newTestRelay(t, repo, pub, &fakeRegistry{}, config.OutboxConfig{})

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, row.AggregateID.String(), msg.OrderingKey)
	assert.Equal(t, string(enums.EventIssueReported), msg.Attributes["event_type"])
	assert.Equal(t, string(row.AggregateType), msg.Attributes["aggregate_type"])
	assert.Equal(t, "2026-04-01T08:30:00Z", msg.Attributes["created_at"])
	assert.JSONEq(t, string(row.Payload), string(msg.Data))
}

func TestRelayParksUnresolvableRows(t *testing.T) {
	row := outboxRow(t, enums.EventMaterialRequested, uuid.New(), 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("payload missing material"))}
	pub := &fakePublisher{}
	relay := newTestRelay(t, repo, pub, reg, config.OutboxConfig{MaxAttempts: 4})

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, repo.parked[row.ID])
	assert.Empty(t, pub.sent)
	assert.Empty(t, repo.published)
}

func TestRelayParksAtMaxAttempts(t *testing.T) {
	row := outboxRow(t, enums.EventMaterialRequestApproved, uuid.New(), 1)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{errs: []error{errors.New("unavailable")}}
	reg := prometheus.NewRegistry()
	relay := newTestRelay(t, repo, pub, &fakeRegistry{}, config.OutboxConfig{MaxAttempts: 2})
	relay.metrics = metrics.NewOutboxMetrics(reg)

	_, err := relay.relayBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.parked[row.ID])
	assert.Empty(t, repo.failed)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var parked float64
	for _, mf := range mfs {
		if mf.GetName() != "outbox_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == metrics.OutboxParked {
					parked = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(1), parked)
}

func TestRelayBatchAbortsOnBookkeepingError(t *testing.T) {
	row := outboxRow(t, enums.EventOrderDelivered, uuid.New(), 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}, markErr: errors.New("connection reset")}
	relay := newTestRelay(t, repo, &fakePublisher{}, &fakeRegistry{}, config.OutboxConfig{})

	_, err := relay.relayBatch(context.Background())
	require.ErrorContains(t, err, "mark published")
}

func TestRelayDefaultsAndValidation(t *testing.T) {
	relay := newTestRelay(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, config.OutboxConfig{})
	assert.Equal(t, defaultBatchSize, relay.batchSize)
	assert.Equal(t, defaultMaxAttempts, relay.maxAttempts)
	assert.Equal(t, defaultPollInterval, relay.pollInterval)

	_, err := NewRelay(RelayParams{Logger: relay.logg, DB: &fakeDB{}})
	assert.ErrorContains(t, err, "pubsub client is required")
}

func TestRelayRunStopsWhenPingFails(t *testing.T) {
	relay := newTestRelay(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, config.OutboxConfig{})
	relay.db = &fakeDB{pingErr: errors.New("refused")}

	assert.ErrorContains(t, relay.Run(context.Background()), "database ping failed")
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, time.Second, nextBackoff(0, base, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, base, maxBackoff))
}

func newTestRelay(t *testing.T, repo outboxRepository, pub *fakePublisher, reg registryResolver, cfg config.OutboxConfig) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:           cfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-relay-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
	})
	require.NoError(t, err)
	return relay
}

func outboxRow(t *testing.T, eventType enums.OutboxEventType, aggregateID uuid.UUID, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"projectName":"Skyline Tower"}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC),
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	parked    map[uuid.UUID]int
	markErr   error
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	if f.parked == nil {
		f.parked = map[uuid.UUID]int{}
	}
	f.parked[id] = attempts
	return nil
}

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	errs    []error
	sent    []*gcppubsub.Message
	resumed []string
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakePublishResult{err: err}
}

func (f *fakePublisher) ResumePublish(key string) {
	f.resumed = append(f.resumed, key)
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "server-1", nil
}

type fakeRegistry struct {
	err error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         "siteboss-domain",
		},
		Envelope: outbox.PayloadEnvelope{EventID: event.ID.String(), OccurredAt: event.CreatedAt},
		Payload:  &payloads.OrderDeliveredEvent{},
	}, nil
}
