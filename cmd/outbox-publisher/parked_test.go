package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

type fakeParkedStore struct {
	rows      []models.OutboxEvent
	requeued  []uuid.UUID
	lastLimit int
}

func (f *fakeParkedStore) ListParked(_ context.Context, limit int) ([]models.OutboxEvent, error) {
	f.lastLimit = limit
	return f.rows, nil
}

func (f *fakeParkedStore) RequeueParked(_ context.Context, ids ...uuid.UUID) (int64, error) {
	f.requeued = append(f.requeued, ids...)
	return int64(len(ids)), nil
}

func TestListParkedWritesJSONLines(t *testing.T) {
	parkedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	msg := "publisher not configured for topic"
	store := &fakeParkedStore{rows: []models.OutboxEvent{
		{ID: uuid.New(), EventType: enums.EventOrderDelivered, AggregateID: uuid.New(), AttemptCount: 10, LastError: &msg, ParkedAt: &parkedAt},
		{ID: uuid.New(), EventType: enums.EventIssueReported, AggregateID: uuid.New()},
	}}

	var out bytes.Buffer
	require.NoError(t, listParked(context.Background(), store, 5, &out))
	assert.Equal(t, 5, store.lastLimit)

	dec := json.NewDecoder(&out)
	var first parkedRow
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, "order_delivered", first.EventType)
	assert.Equal(t, msg, first.LastError)
	assert.True(t, first.ParkedAt.Equal(parkedAt))

	var second parkedRow
	require.NoError(t, dec.Decode(&second))
	assert.Empty(t, second.LastError)
}

func TestRequeueParkedParsesIDs(t *testing.T) {
	store := &fakeParkedStore{}
	a, b := uuid.New(), uuid.New()

	released, err := requeueParked(context.Background(), store, " "+a.String()+", ,"+b.String())
	require.NoError(t, err)
	assert.EqualValues(t, 2, released)
	assert.Equal(t, []uuid.UUID{a, b}, store.requeued)

	_, err = requeueParked(context.Background(), store, "not-a-uuid")
	assert.Error(t, err)
	_, err = requeueParked(context.Background(), store, " , ")
	assert.Error(t, err)
}
