package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"project": "Harbor Lofts"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["project"] != "Harbor Lofts" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorExposesValidationDetailsAndRequestID(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &bytes.Buffer{}})
	ctx := logg.WithRequestID(context.Background(), "req-7f3a")
	err := pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
		WithDetails(map[string]any{"field": "quantity"})

	w := httptest.NewRecorder()
	WriteError(ctx, logg, w, err)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	apiErr := decodeError(t, w)
	if apiErr.Code != string(pkgerrors.CodeValidation) || apiErr.Message != "quantity must be positive" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if apiErr.Details == nil {
		t.Fatal("expected validation details in payload")
	}
	if apiErr.RequestID != "req-7f3a" {
		t.Fatalf("expected request id echo, got %q", apiErr.RequestID)
	}
}

func TestWriteErrorHidesServerMessages(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf})

	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	apiErr := decodeError(t, w)
	if apiErr.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", apiErr.Code)
	}
	if strings.Contains(apiErr.Message, "10.0.0.5") || apiErr.Details != nil {
		t.Fatalf("server error leaked internals: %+v", apiErr)
	}
	if !strings.Contains(buf.String(), "request.error") || !strings.Contains(buf.String(), "connection refused") {
		t.Fatalf("expected logged cause, got %s", buf.String())
	}
}

func TestWriteErrorSetsRetryAfterForRateLimits(t *testing.T) {
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").
		WithDetails(map[string]any{RetryAfterDetail: 45})

	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, err)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("expected Retry-After 45, got %q", got)
	}
	if apiErr := decodeError(t, w); apiErr.Details != nil {
		t.Fatalf("rate limit details must stay private, got %v", apiErr.Details)
	}
}

func TestWriteErrorNilFallsBackToInternal(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
