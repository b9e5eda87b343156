package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/siteboss-backend/internal/notifications"
	"github.com/angelmondragon/siteboss-backend/pkg/app"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/siteboss-backend/pkg/realtime"
)

func main() {
	proc := app.Start("notifications-worker")
	cfg, logg := proc.Config, proc.Logger
	boot := context.Background()

	if cfg.PubSub.DomainSubscription == "" {
		proc.Must("domain subscription", errors.New("SITEBOSS_PUBSUB_DOMAIN_SUBSCRIPTION is not set"))
	}

	dbClient := proc.Database(boot)
	redisClient := proc.Redis(boot)
	subscription := proc.PubSub(boot).DomainSubscription()

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL, cfg.Eventing.IdempotencyLease)
	proc.Must("idempotency manager", err)

	hub := realtime.NewHub(redisClient, logg, cfg.FeatureFlags.Realtime)
	consumer, err := notifications.NewConsumer(notifications.NewRepository(dbClient.DB()), subscription, dedupe, hub, logg)
	proc.Must("notifications consumer", err)

	ctx, stop := proc.Context()
	defer stop()
	proc.ServeMetrics(ctx)
	proc.Run(ctx, consumer.Run)
}
