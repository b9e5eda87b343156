package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/siteboss-backend/api/routes"
	"github.com/angelmondragon/siteboss-backend/internal/auth"
	"github.com/angelmondragon/siteboss-backend/internal/dashboard"
	"github.com/angelmondragon/siteboss-backend/internal/feed"
	"github.com/angelmondragon/siteboss-backend/internal/inventory"
	"github.com/angelmondragon/siteboss-backend/internal/issues"
	"github.com/angelmondragon/siteboss-backend/internal/labor"
	"github.com/angelmondragon/siteboss-backend/internal/notifications"
	"github.com/angelmondragon/siteboss-backend/internal/orders"
	"github.com/angelmondragon/siteboss-backend/internal/procurement"
	"github.com/angelmondragon/siteboss-backend/internal/projects"
	"github.com/angelmondragon/siteboss-backend/internal/transactions"
	"github.com/angelmondragon/siteboss-backend/internal/users"
	"github.com/angelmondragon/siteboss-backend/internal/workers"
	"github.com/angelmondragon/siteboss-backend/pkg/app"
	"github.com/angelmondragon/siteboss-backend/pkg/auth/session"
	"github.com/angelmondragon/siteboss-backend/pkg/db"
	"github.com/angelmondragon/siteboss-backend/pkg/geocode"
	"github.com/angelmondragon/siteboss-backend/pkg/metrics"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
	"github.com/angelmondragon/siteboss-backend/pkg/realtime"
	"github.com/angelmondragon/siteboss-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	proc := app.Start("api")
	cfg, logg := proc.Config, proc.Logger
	boot := context.Background()

	dbClient := proc.Database(boot)
	redisClient := proc.Redis(boot)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	proc.Must("session manager", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(cfg, logg, buildDeps(proc, dbClient, redisClient, sessionManager)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := proc.Context()
	defer stop()
	ctx = logg.WithField(ctx, "addr", server.Addr)

	proc.Run(ctx, func(ctx context.Context) error {
		errc := make(chan error, 1)
		go func() { errc <- server.ListenAndServe() }()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}
		// SSE streams never drain by themselves
		drain, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(drain); err != nil {
			return fmt.Errorf("drain http server: %w", err)
		}
		return nil
	})
}

func buildDeps(proc *app.Process, dbClient *db.Client, redisClient *redis.Client, sessionManager *session.Manager) routes.Deps {
	cfg, logg := proc.Config, proc.Logger
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	hub := realtime.NewHub(redisClient, logg, cfg.FeatureFlags.Realtime)
	geocoder := geocode.NewClient(cfg.Geocode)

	ownerRepo := users.NewRepository(conn)
	workerRepo := workers.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		OwnerRepo:      ownerRepo,
		WorkerRepo:     workerRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		AccessCodes:    cfg.FeatureFlags.WorkerAccessCodes,
		Logger:         logg,
	})
	proc.Must("auth service", err)

	userService, err := users.NewService(ownerRepo)
	proc.Must("users service", err)

	dashboardService, err := dashboard.NewService(dashboard.NewRepository(conn))
	proc.Must("dashboard service", err)

	projectService, err := projects.NewService(projects.NewRepository(conn), geocoder)
	proc.Must("projects service", err)

	ledger, err := transactions.NewService(transactions.NewRepository(conn))
	proc.Must("transactions service", err)

	workerService, err := workers.NewService(workerRepo, workers.Options{
		Password:    cfg.Password,
		AccessCodes: cfg.FeatureFlags.WorkerAccessCodes,
		Sessions:    sessionManager,
	})
	proc.Must("workers service", err)

	issueService, err := issues.NewService(issues.NewRepository(conn), dbClient, emitter)
	proc.Must("issues service", err)

	stock, err := inventory.NewService(inventory.NewRepository(conn))
	proc.Must("inventory service", err)

	orderService, err := orders.NewService(orders.NewRepository(conn), dbClient, emitter, stock)
	proc.Must("orders service", err)

	inbox, err := notifications.NewService(notifications.NewRepository(conn), dbClient, emitter, hub, logg)
	proc.Must("notifications service", err)

	procurementService, err := procurement.NewService(procurement.Params{
		DB:      dbClient,
		Repo:    procurement.NewRepository(conn),
		Inbox:   inbox,
		Ledger:  ledger,
		Orders:  orderService,
		Emitter: emitter,
		Live:    hub,
		Metrics: metrics.NewSagaMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	proc.Must("procurement service", err)

	laborService, err := labor.NewService(labor.NewRepository(conn))
	proc.Must("labor service", err)

	feedService, err := feed.NewService(feed.NewRepository(conn))
	proc.Must("feed service", err)

	return routes.Deps{
		DB:            dbClient,
		Redis:         redisClient,
		RateLimits:    redisClient,
		Idempotency:   redisClient,
		Sessions:      sessionManager,
		Gatherer:      prometheus.DefaultGatherer,
		Auth:          authService,
		Users:         userService,
		Dashboard:     dashboardService,
		Projects:      projectService,
		Transactions:  ledger,
		Workers:       workerService,
		Issues:        issueService,
		Inventory:     stock,
		Orders:        orderService,
		Notifications: inbox,
		Procurement:   procurementService,
		Labor:         laborService,
		Feed:          feedService,
		Geocoder:      geocoder,
		Realtime:      hub,
	}
}
