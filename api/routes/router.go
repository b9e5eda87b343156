package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/siteboss-backend/api/controllers"
	"github.com/angelmondragon/siteboss-backend/api/middleware"
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
	"github.com/angelmondragon/siteboss-backend/pkg/auth/session"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/geocode"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/realtime"
	pkgredis "github.com/angelmondragon/siteboss-backend/pkg/redis"
)

// RateLimitStore counts auth attempts per window.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps carries everything the HTTP surface is built from.
type Deps struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimits  RateLimitStore
	Idempotency pkgredis.IdempotencyStore
	Sessions    session.AccessSessionChecker
	Gatherer    prometheus.Gatherer

	Auth          auth.Service
	Users         users.Service
	Dashboard     dashboard.Service
	Projects      projects.Service
	Transactions  transactions.Service
	Workers       workers.Service
	Issues        issues.Service
	Inventory     inventory.Service
	Orders        orders.Service
	Notifications notifications.Service
	Procurement   procurement.Service
	Labor         labor.Service
	Feed          feed.Service
	Geocoder      geocode.Reverser
	Realtime      *realtime.Hub
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginMobileLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterMobileLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimits, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.RateLimits, logg),
			middleware.Idempotency(deps.Idempotency, logg),
		).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Get("/session", controllers.AuthSession(deps.Auth, logg))
	})

	owner := middleware.RequireRoles(logg, enums.RoleOwner)
	site := middleware.RequireRoles(logg, enums.RoleOwner, enums.RoleSupervisor)
	stores := middleware.RequireRoles(logg, enums.RoleOwner, enums.RoleStoreKeeper)
	supervisor := middleware.RequireRoles(logg, enums.RoleSupervisor)
	anyone := middleware.RequireRoles(logg, enums.RoleOwner, enums.RoleSupervisor, enums.RoleStoreKeeper)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/profile", func(r chi.Router) {
			r.Use(owner)
			r.Get("/", controllers.GetProfile(deps.Users, logg))
			r.Patch("/", controllers.UpdateProfile(deps.Users, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(owner)
			r.Get("/stats", controllers.DashboardStats(deps.Dashboard, logg))
			r.Get("/map", controllers.DashboardMap(deps.Dashboard, logg))
		})

		r.Route("/projects", func(r chi.Router) {
			r.Use(owner)
			r.Get("/", controllers.ListProjects(deps.Projects, logg))
			r.Post("/", controllers.CreateProject(deps.Projects, logg))
			r.Get("/{projectId}", controllers.GetProject(deps.Projects, logg))
			r.Patch("/{projectId}", controllers.UpdateProject(deps.Projects, logg))
			r.Delete("/{projectId}", controllers.DeleteProject(deps.Projects, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.With(supervisor).Post("/expenses", controllers.RecordExpense(deps.Transactions, logg))

			r.Group(func(r chi.Router) {
				r.Use(owner)
				r.Get("/", controllers.ListTransactions(deps.Transactions, logg))
				r.Post("/", controllers.CreateTransaction(deps.Transactions, logg))
				r.Get("/summary", controllers.TransactionSummary(deps.Transactions, logg))
				r.Patch("/{transactionId}/status", controllers.SettleTransaction(deps.Transactions, logg))
				r.Delete("/{transactionId}", controllers.DeleteTransaction(deps.Transactions, logg))
			})
		})

		r.Route("/workers", func(r chi.Router) {
			r.Use(owner)
			r.Get("/", controllers.ListWorkers(deps.Workers, logg))
			r.Post("/", controllers.CreateWorker(deps.Workers, logg))
			r.Get("/{workerId}", controllers.GetWorker(deps.Workers, logg))
			r.Patch("/{workerId}", controllers.UpdateWorker(deps.Workers, logg))
			r.Post("/{workerId}/code", controllers.RegenerateWorkerCode(deps.Workers, logg))
			r.Post("/{workerId}/revoke", controllers.RevokeWorker(deps.Workers, logg))
			r.Delete("/{workerId}", controllers.DeleteWorker(deps.Workers, logg))
		})

		r.Route("/issues", func(r chi.Router) {
			r.With(anyone).Get("/", controllers.ListIssues(deps.Issues, logg))
			r.With(anyone).Get("/open-count", controllers.OpenIssueCount(deps.Issues, logg))
			r.With(site).Post("/", controllers.ReportIssue(deps.Issues, logg))
			r.With(site).Post("/{issueId}/resolve", controllers.ResolveIssue(deps.Issues, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(stores)
			r.Get("/", controllers.ListInventory(deps.Inventory, logg))
			r.Post("/", controllers.CreateInventoryItem(deps.Inventory, logg))
			r.Post("/{itemId}/adjust", controllers.AdjustInventory(deps.Inventory, logg))
			r.Post("/{itemId}/usage", controllers.LogInventoryUsage(deps.Inventory, logg))
			r.Delete("/{itemId}", controllers.DeleteInventoryItem(deps.Inventory, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(stores)
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Post("/{orderId}/deliver", controllers.DeliverOrder(deps.Orders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.With(supervisor).Post("/material-requests", controllers.RequestMaterial(deps.Notifications, logg))

			r.Group(func(r chi.Router) {
				r.Use(owner)
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Get("/count", controllers.CountNotifications(deps.Notifications, logg))
				r.Delete("/{notificationId}", controllers.DismissNotification(deps.Notifications, logg))
				r.Post("/{notificationId}/act", controllers.ActOnNotification(deps.Procurement, logg))
			})
		})

		r.Route("/labor", func(r chi.Router) {
			r.With(site).Get("/", controllers.ListLabor(deps.Labor, logg))
			r.With(site).Get("/summary", controllers.LaborSummary(deps.Labor, logg))

			r.Group(func(r chi.Router) {
				r.Use(supervisor)
				r.Post("/", controllers.AddLabor(deps.Labor, logg))
				r.Post("/{entryId}/toggle", controllers.ToggleAttendance(deps.Labor, logg))
				r.Delete("/{entryId}", controllers.DeleteLabor(deps.Labor, logg))
			})
		})

		r.Route("/feed", func(r chi.Router) {
			r.Use(site)
			r.Get("/", controllers.ListFeed(deps.Feed, logg))
			r.Post("/", controllers.PostToFeed(deps.Feed, logg))
		})

		r.With(anyone).Get("/geocode/reverse", controllers.ReverseGeocode(deps.Geocoder, logg))
		r.With(stores).Get("/realtime/{table}", controllers.StreamInserts(deps.Realtime, logg))
	})

	return r
}
