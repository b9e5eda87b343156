// Package app holds the start-up and shutdown sequence shared by the
// Siteboss binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/db"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/metrics"
	"github.com/angelmondragon/siteboss-backend/pkg/migrate"
	"github.com/angelmondragon/siteboss-backend/pkg/pubsub"
	"github.com/angelmondragon/siteboss-backend/pkg/redis"
)

// Process is one running binary: its config, its logger and the
// resources to release when it stops.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

type closer struct {
	name string
	fn   func() error
}

// Start loads .env and the config for a process of the given kind. It
// exits the program when the config is invalid.
func Start(kind string) *Process {
	p := &Process{Kind: kind, Logger: logger.New(logger.Options{ServiceName: kind}), exit: os.Exit}
	if err := godotenv.Load(); err != nil {
		p.Logger.Debug(context.Background(), "no .env file")
	}

	cfg, err := config.Load()
	p.Must("config", err)
	cfg.Service.Kind = kind
	p.Config = cfg
	p.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return p
}

// Must stops the process when err is set, naming the resource that failed.
func (p *Process) Must(resource string, err error) {
	if err == nil {
		return
	}
	p.Logger.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	p.Shutdown()
	p.exit(1)
}

// OnShutdown registers fn to run when the process stops. Closers run in
// reverse order of registration.
func (p *Process) OnShutdown(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

// Shutdown runs the registered closers once.
func (p *Process) Shutdown() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.fn(); err != nil {
			p.Logger.Error(context.Background(), "close "+c.name, err)
		}
	}
	p.closers = nil
}

// Database opens the configured database and, in dev, applies pending
// migrations.
func (p *Process) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	p.Must("database", err)
	p.OnShutdown("database", client.Close)
	p.Must("dev migrations", migrate.MaybeRunDev(ctx, p.Config, p.Logger, client))
	return client
}

func (p *Process) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	p.Must("redis", err)
	p.OnShutdown("redis", client.Close)
	return client
}

func (p *Process) PubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	p.Must("pubsub", err)
	p.OnShutdown("pubsub", client.Close)
	return client
}

// Context is cancelled on SIGINT or SIGTERM and carries the process
// identity as log fields.
func (p *Process) Context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return p.Logger.WithFields(ctx, map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Kind,
		"instance":    InstanceID(),
	}), stop
}

// ServeMetrics exposes the default registry on the worker metrics address
// until ctx ends. An empty address leaves it off.
func (p *Process) ServeMetrics(ctx context.Context) {
	go func() {
		if err := metrics.Serve(ctx, p.Config.Service.MetricsAddr, prometheus.DefaultGatherer, p.Logger); err != nil {
			p.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
}

// Run blocks on loop, then releases resources. Cancellation is a clean
// stop; any other error exits non-zero.
func (p *Process) Run(ctx context.Context, loop func(context.Context) error) {
	p.Logger.Info(ctx, p.Kind+" starting")
	err := loop(ctx)
	p.Shutdown()
	if err != nil && !errors.Is(err, context.Canceled) {
		p.Logger.Error(ctx, p.Kind+" stopped unexpectedly", err)
		p.exit(1)
		return
	}
	p.Logger.Info(ctx, p.Kind+" stopped")
}
