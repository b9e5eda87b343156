package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siteboss-backend/pkg/realtime"
)

const siteEventsConsumer = "site-event-notifications"

type processedTracker interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (idempotency.Claim, error)
	Complete(ctx context.Context, consumer string, eventID uuid.UUID) error
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer watches domain events and turns deliveries and reported issues
// into owner notifications.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	live         realtime.Publisher
	logg         *logger.Logger
}

// NewConsumer builds the site event notification consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, tracker processedTracker, live realtime.Publisher, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  tracker,
		live:         live,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	fields := map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderDelivered, enums.EventIssueReported:
	default:
		c.logg.Debug(logCtx, "skipping event without notification")
		return processResult{ack: true}
	}

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "undecodable envelope", err)
		return processResult{ack: true}
	}
	eventID := envelope.ID()

	claim, err := c.idempotency.Claim(ctx, siteEventsConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency claim failed", err)
		return processResult{nack: true}
	}
	switch claim {
	case idempotency.Duplicate:
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	case idempotency.InFlight:
		c.logg.Info(logCtx, "event held by another delivery")
		return processResult{nack: true}
	}

	notification, err := buildNotification(enums.OutboxEventType(eventType), envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		c.complete(logCtx, eventID)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithOwnerID(logCtx, notification.OwnerID.String())

	if err := c.deliver(ctx, notification, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		if relErr := c.idempotency.Release(ctx, siteEventsConsumer, eventID); relErr != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", relErr.Error()), "idempotency release failed")
		}
		return processResult{nack: true}
	}
	c.complete(logCtx, eventID)
	return processResult{ack: true}
}

// complete marks eventID done. A failure only costs a duplicate check once the
// lease lapses, so it is logged and the message still acked.
func (c *Consumer) complete(ctx context.Context, eventID uuid.UUID) {
	if err := c.idempotency.Complete(ctx, siteEventsConsumer, eventID); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "idempotency complete failed")
	}
}

func (c *Consumer) deliver(ctx context.Context, notification *models.Notification, logCtx context.Context) error {
	enabled, err := c.repo.NotificationsEnabled(ctx, notification.OwnerID)
	if err != nil {
		return err
	}
	if !enabled {
		c.logg.Info(logCtx, "owner has notifications switched off")
		return nil
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	realtime.Announce(ctx, c.live, c.logg, notification.OwnerID, realtime.TableNotifications, FromModel(notification))
	c.logg.Info(logCtx, "owner notified")
	return nil
}

func buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventOrderDelivered:
		var payload payloads.OrderDeliveredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.OwnerID == uuid.Nil {
			return nil, fmt.Errorf("owner id missing")
		}
		item := payload.Item
		return &models.Notification{
			OwnerID:     payload.OwnerID,
			ProjectID:   payload.ProjectID,
			Type:        enums.NotificationTypeSuccess,
			Title:       "Material Delivered",
			Message:     fmt.Sprintf("%d units of %s received into stock.", payload.Quantity, payload.Item),
			Item:        &item,
			RequestedBy: "Store",
		}, nil
	case enums.EventIssueReported:
		var payload payloads.IssueReportedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.OwnerID == uuid.Nil {
			return nil, fmt.Errorf("owner id missing")
		}
		kind := enums.NotificationTypeWarning
		if payload.Priority == string(enums.IssuePriorityHigh) {
			kind = enums.NotificationTypeUrgent
		}
		return &models.Notification{
			OwnerID:     payload.OwnerID,
			ProjectID:   payload.ProjectID,
			Type:        kind,
			Title:       "Issue Reported",
			Message:     fmt.Sprintf("%s at %s: %s", payload.Reporter, payload.SiteName, payload.Title),
			RequestedBy: payload.Reporter,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported event %s", eventType)
	}
}
