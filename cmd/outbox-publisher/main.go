package main

import (
	"context"
	"flag"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/siteboss-backend/pkg/app"
	"github.com/angelmondragon/siteboss-backend/pkg/metrics"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox/registry"
)

func main() {
	showParked := flag.Int("parked", 0, "print up to N parked events and exit")
	requeue := flag.String("requeue", "", "comma separated parked event ids to hand back to the relay, then exit")
	flag.Parse()

	proc := app.Start("outbox-publisher")
	cfg, logg := proc.Config, proc.Logger
	boot := context.Background()

	dbClient := proc.Database(boot)
	repo := outbox.NewRepository(dbClient.DB())

	switch {
	case *showParked > 0:
		proc.Must("list parked", listParked(boot, repo, *showParked, os.Stdout))
		proc.Shutdown()
		return
	case *requeue != "":
		released, err := requeueParked(boot, repo, *requeue)
		proc.Must("requeue parked", err)
		logg.Info(logg.WithField(boot, "released", released), "parked events requeued")
		proc.Shutdown()
		return
	}

	publisher := proc.PubSub(boot)
	events, err := registry.NewEventRegistry(cfg.PubSub)
	proc.Must("event registry", err)

	relay, err := NewRelay(RelayParams{
		Outbox:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     publisher,
		Repository: repo,
		Registry:   events,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	proc.Must("outbox relay", err)

	ctx, stop := proc.Context()
	defer stop()
	proc.ServeMetrics(ctx)
	proc.Run(ctx, relay.Run)
}
