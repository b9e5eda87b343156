package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
)

type parkedStore interface {
	ListParked(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	RequeueParked(ctx context.Context, ids ...uuid.UUID) (int64, error)
}

type parkedRow struct {
	ID          string    `json:"id"`
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	ParkedAt    time.Time `json:"parked_at"`
}

// listParked writes one JSON line per parked row to out.
func listParked(ctx context.Context, store parkedStore, limit int, out io.Writer) error {
	rows, err := store.ListParked(ctx, limit)
	if err != nil {
		return fmt.Errorf("list parked: %w", err)
	}
	enc := json.NewEncoder(out)
	for _, row := range rows {
		line := parkedRow{
			ID:          row.ID.String(),
			EventType:   string(row.EventType),
			AggregateID: row.AggregateID.String(),
			Attempts:    row.AttemptCount,
		}
		if row.LastError != nil {
			line.LastError = *row.LastError
		}
		if row.ParkedAt != nil {
			line.ParkedAt = row.ParkedAt.UTC()
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

// requeueParked releases the comma separated ids in raw back to the relay.
func requeueParked(ctx context.Context, store parkedStore, raw string) (int64, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return 0, fmt.Errorf("outbox id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("no outbox ids given")
	}
	return store.RequeueParked(ctx, ids...)
}
