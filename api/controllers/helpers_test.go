package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/api/middleware"
	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func ownerActor() access.Actor {
	id := uuid.New()
	return access.Actor{UserID: id, OwnerID: id, Role: enums.RoleOwner, Name: "Owner"}
}

func supervisorActor(ownerID, projectID uuid.UUID) access.Actor {
	return access.Actor{UserID: uuid.New(), OwnerID: ownerID, Role: enums.RoleSupervisor, ProjectID: &projectID, Name: "Ravi"}
}

func withActor(req *http.Request, actor access.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode data envelope: %v", err)
	}
}
