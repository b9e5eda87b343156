package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

// Table names a stream clients can subscribe to.
type Table string

const (
	TableNotifications Table = "notifications"
	TableOrders        Table = "orders"
)

const eventInsert = "INSERT"

// ParseTable accepts only the streamed tables.
func ParseTable(value string) (Table, error) {
	switch Table(value) {
	case TableNotifications, TableOrders:
		return Table(value), nil
	default:
		return "", fmt.Errorf("table %q is not streamed", value)
	}
}

// Event is one row change delivered to subscribers. ProjectID copies the
// record's project_id so subscribers can filter by site.
type Event struct {
	Table     Table           `json:"table"`
	Type      string          `json:"type"`
	ProjectID *uuid.UUID      `json:"project_id,omitempty"`
	Record    json.RawMessage `json:"record"`
	At        time.Time       `json:"at"`
}

// Broker is the pub/sub transport behind the hub.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error)
	RealtimeChannel(ownerID, table string) string
}

// Publisher announces inserted rows.
type Publisher interface {
	PublishInsert(ctx context.Context, ownerID uuid.UUID, table Table, record any) error
}

// Hub fans inserts out per owner and table.
type Hub struct {
	broker  Broker
	logg    *logger.Logger
	enabled bool
}

func NewHub(broker Broker, logg *logger.Logger, enabled bool) *Hub {
	return &Hub{broker: broker, logg: logg, enabled: enabled && broker != nil}
}

// Enabled reports whether streaming is switched on.
func (h *Hub) Enabled() bool {
	return h != nil && h.enabled
}

func (h *Hub) PublishInsert(ctx context.Context, ownerID uuid.UUID, table Table, record any) error {
	if !h.Enabled() {
		return nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", table, err)
	}
	event := Event{Table: table, Type: eventInsert, ProjectID: projectOf(raw), Record: raw, At: time.Now().UTC()}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", table, err)
	}
	return h.broker.Publish(ctx, h.broker.RealtimeChannel(ownerID.String(), string(table)), payload)
}

func projectOf(record json.RawMessage) *uuid.UUID {
	var scoped struct {
		ProjectID *uuid.UUID `json:"project_id"`
	}
	if err := json.Unmarshal(record, &scoped); err != nil {
		return nil
	}
	return scoped.ProjectID
}

// Subscribe streams inserts for one owner and table until ctx ends or the
// close func runs. Undecodable messages are dropped.
func (h *Hub) Subscribe(ctx context.Context, ownerID uuid.UUID, table Table) (<-chan Event, func() error, error) {
	if !h.Enabled() {
		return nil, nil, fmt.Errorf("realtime disabled")
	}
	raw, closeFn, err := h.broker.Subscribe(ctx, h.broker.RealtimeChannel(ownerID.String(), string(table)))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for payload := range raw {
			var event Event
			if err := json.Unmarshal(payload, &event); err != nil {
				if h.logg != nil {
					h.logg.Warn(h.logg.WithField(ctx, "table", table), "dropping malformed realtime event")
				}
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, closeFn, nil
}

// Announce publishes an insert and logs instead of failing the caller.
func Announce(ctx context.Context, p Publisher, logg *logger.Logger, ownerID uuid.UUID, table Table, record any) {
	if p == nil {
		return
	}
	if err := p.PublishInsert(ctx, ownerID, table, record); err != nil && logg != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "realtime publish failed")
	}
}
