package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/siteboss-backend/internal/cron"
	"github.com/angelmondragon/siteboss-backend/internal/inventory"
	"github.com/angelmondragon/siteboss-backend/internal/notifications"
	"github.com/angelmondragon/siteboss-backend/internal/orders"
	"github.com/angelmondragon/siteboss-backend/internal/procurement"
	"github.com/angelmondragon/siteboss-backend/internal/transactions"
	"github.com/angelmondragon/siteboss-backend/pkg/app"
	"github.com/angelmondragon/siteboss-backend/pkg/db"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/metrics"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
)

func main() {
	proc := app.Start("cron-worker")
	cfg, logg := proc.Config, proc.Logger
	boot := context.Background()

	dbClient := proc.Database(boot)
	redisClient := proc.Redis(boot)

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)

	recoverer, err := buildRecoverer(dbClient, notificationRepo, outbox.NewService(outboxRepo, logg), logg)
	proc.Must("material request recovery", err)

	sagaJob, err := cron.NewSagaRecoveryJob(cron.SagaRecoveryJobParams{
		Logger:     logg,
		Recoverer:  recoverer,
		StaleAfter: cfg.Saga.StaleAfter,
	})
	proc.Must("saga recovery job", err)
	notificationJob, err := cron.NewNotificationCleanupJob(logg, dbClient, notificationRepo, cfg.Cron.NotificationRetention)
	proc.Must("notification cleanup job", err)
	outboxJob, err := cron.NewOutboxRetentionJob(logg, dbClient, outboxRepo, cfg.Cron.OutboxRetention)
	proc.Must("outbox retention job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(proc.Kind), 0)
	proc.Must("cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(sagaJob, notificationJob, outboxJob),
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	proc.Must("cron service", err)

	ctx, stop := proc.Context()
	defer stop()
	proc.ServeMetrics(ctx)
	proc.Run(ctx, service.Run)
}

func buildRecoverer(dbClient *db.Client, notificationRepo notifications.Repository, emitter outbox.Emitter, logg *logger.Logger) (procurement.Service, error) {
	conn := dbClient.DB()
	inbox, err := notifications.NewService(notificationRepo, dbClient, emitter, nil, logg)
	if err != nil {
		return nil, err
	}
	ledger, err := transactions.NewService(transactions.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	stock, err := inventory.NewService(inventory.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	placer, err := orders.NewService(orders.NewRepository(conn), dbClient, emitter, stock)
	if err != nil {
		return nil, err
	}
	return procurement.NewService(procurement.Params{
		DB:      dbClient,
		Repo:    procurement.NewRepository(conn),
		Inbox:   inbox,
		Ledger:  ledger,
		Orders:  placer,
		Emitter: emitter,
		Metrics: metrics.NewSagaMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
}
