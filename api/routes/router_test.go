package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/auth"
	"github.com/angelmondragon/siteboss-backend/internal/dashboard"
	"github.com/angelmondragon/siteboss-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/siteboss-backend/pkg/auth"
	"github.com/angelmondragon/siteboss-backend/pkg/auth/session"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct {
	auth.Service
}

func (stubAuthService) Restore(ctx context.Context, accessToken string) *auth.SessionState {
	return &auth.SessionState{Authenticated: false}
}

type stubDashboard struct{}

func (stubDashboard) Stats(ctx context.Context, actor access.Actor) (*dashboard.Stats, error) {
	return &dashboard.Stats{ActiveSites: 2, CashOutflow: decimal.NewFromInt(700)}, nil
}

func (stubDashboard) MapSites(ctx context.Context, actor access.Actor) ([]dashboard.MapSite, error) {
	return nil, nil
}

type stubOrders struct {
	orders.Placer
}

func (stubOrders) List(ctx context.Context, actor access.Actor, params orders.ListParams) (*orders.ListResult, error) {
	return &orders.ListResult{Items: []orders.OrderDTO{}}, nil
}

func (stubOrders) Deliver(ctx context.Context, actor access.Actor, id uuid.UUID) (*orders.Delivery, error) {
	return &orders.Delivery{}, nil
}

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("idem:%s:%s", scope, id)
}

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, Deps{
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Idempotency: &memoryIdempotency{data: map[string]string{}},
		Sessions:    stubSessionChecker{},
		Gatherer:    prometheus.NewRegistry(),
		Auth:        stubAuthService{},
		Dashboard:   stubDashboard{},
		Orders:      stubOrders{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	ownerID := uuid.New()
	userID := ownerID
	var projectID *uuid.UUID
	if role != enums.RoleOwner {
		userID = uuid.New()
		pid := uuid.New()
		projectID = &pid
	}
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:    userID,
		OwnerID:   ownerID,
		Role:      role,
		ProjectID: projectID,
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestSessionRestoreIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"authenticated":false`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestDashboardRequiresOwner(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	supervisor := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil)
	supervisor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleSupervisor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, supervisor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for supervisor got %d", resp.Code)
	}

	owner := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil)
	owner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleOwner))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner got %d", resp.Code)
	}
}

func TestOrdersAllowStoreKeeper(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	keeper := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	keeper.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleStoreKeeper))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, keeper)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for store keeper got %d", resp.Code)
	}

	supervisor := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	supervisor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleSupervisor))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, supervisor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for supervisor got %d", resp.Code)
	}
}

func TestDeliverRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.RoleStoreKeeper)
	path := "/api/v1/orders/" + uuid.NewString() + "/deliver"

	missing := httptest.NewRequest(http.MethodPost, path, nil)
	missing.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	keyed := httptest.NewRequest(http.MethodPost, path, nil)
	keyed.Header.Set("Authorization", "Bearer "+token)
	keyed.Header.Set("Idempotency-Key", "tap-1")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, keyed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with idempotency key got %d", resp.Code)
	}
}
