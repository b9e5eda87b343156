package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/pkg/auth"
	"github.com/angelmondragon/siteboss-backend/pkg/auth/session"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func TestAuthRejections(t *testing.T) {
	ownerID := uuid.New()
	valid := mintTestToken(t, testJWT, ownerID, ownerID, enums.RoleOwner, nil)

	cases := []struct {
		name     string
		header   string
		sessions stubSessionVerifier
		want     int
	}{
		{name: "missing token", sessions: stubSessionVerifier{ok: true}, want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer invalid", sessions: stubSessionVerifier{ok: true}, want: http.StatusUnauthorized},
		{name: "revoked session", header: "Bearer " + valid, want: http.StatusUnauthorized},
		{name: "session store down", header: "Bearer " + valid, sessions: stubSessionVerifier{err: errors.New("redis down")}, want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := Auth(testJWT, tc.sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestAuthSeedsOwnerActor(t *testing.T) {
	ownerID := uuid.New()
	token := mintTestToken(t, testJWT, ownerID, ownerID, enums.RoleOwner, nil)

	actor, code := serveAuthenticated(t, "Bearer "+token)
	if code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if actor.UserID != ownerID || actor.OwnerID != ownerID {
		t.Fatalf("unexpected ids user=%s owner=%s", actor.UserID, actor.OwnerID)
	}
	if actor.Role != enums.RoleOwner || actor.ProjectID != nil {
		t.Fatalf("unexpected owner actor %+v", actor)
	}
}

func TestAuthSeedsWorkerProject(t *testing.T) {
	projectID := uuid.New()
	token := mintTestToken(t, testJWT, uuid.New(), uuid.New(), enums.RoleSupervisor, &projectID)

	// lower-case scheme and a bare token are both accepted
	for _, header := range []string{"bearer " + token, token} {
		actor, code := serveAuthenticated(t, header)
		if code != http.StatusOK {
			t.Fatalf("expected 200 got %d", code)
		}
		if actor.ProjectID == nil || *actor.ProjectID != projectID {
			t.Fatalf("expected project %s got %v", projectID, actor.ProjectID)
		}
	}
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(nil, enums.RoleSupervisor, enums.RoleOwner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		role   enums.Role
		seed   bool
		status int
	}{
		{name: "owner allowed", role: enums.RoleOwner, seed: true, status: http.StatusNoContent},
		{name: "supervisor allowed", role: enums.RoleSupervisor, seed: true, status: http.StatusNoContent},
		{name: "store keeper rejected", role: enums.RoleStoreKeeper, seed: true, status: http.StatusForbidden},
		{name: "unknown role rejected", role: enums.Role("FOREMAN"), seed: true, status: http.StatusForbidden},
		{name: "anonymous rejected", seed: false, status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.seed {
				actor := access.Actor{UserID: uuid.New(), OwnerID: uuid.New(), Role: tc.role}
				req = req.WithContext(WithActor(req.Context(), actor))
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.Code)
			}
		})
	}
}

func serveAuthenticated(t *testing.T, header string) (access.Actor, int) {
	t.Helper()
	var actor access.Actor
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		if actor, ok = ActorFromContext(r.Context()); !ok {
			t.Fatal("expected actor in context")
		}
		if UserIDFromContext(r.Context()) != actor.UserID.String() {
			t.Fatal("user id helper disagrees with actor")
		}
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", header)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return actor, resp.Code
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID, ownerID uuid.UUID, role enums.Role, projectID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:    userID,
		OwnerID:   ownerID,
		Role:      role,
		ProjectID: projectID,
		Name:      "Tester",
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok && s.err == nil, s.err
}
