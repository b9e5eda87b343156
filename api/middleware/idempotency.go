package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/siteboss-backend/api/responses"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/siteboss-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	idempotencyLockTTL     = 30 * time.Second

	// ReplayedHeader marks responses served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotentBody = 1 << 20
)

// idempotentRoutes maps "METHOD path" to how long a response is kept.
// Segments written as {} match any single path segment.
var idempotentRoutes = map[string]time.Duration{
	"POST /api/v1/auth/register":                   defaultIdempotencyTTL,
	"POST /api/v1/projects":                        defaultIdempotencyTTL,
	"POST /api/v1/workers":                         defaultIdempotencyTTL,
	"POST /api/v1/transactions":                    defaultIdempotencyTTL,
	"POST /api/v1/transactions/expenses":           defaultIdempotencyTTL,
	"POST /api/v1/notifications/material-requests": defaultIdempotencyTTL,
	"POST /api/v1/inventory/{}/usage":              defaultIdempotencyTTL,
	// these move money or stock
	"POST /api/v1/notifications/{}/act": criticalIdempotencyTTL,
	"POST /api/v1/orders/{}/deliver":    criticalIdempotencyTTL,
}

type storedResponse struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body"`
	RequestHash string    `json:"request_hash"`
	StoredAt    time.Time `json:"stored_at"`
}

// Idempotency makes the state-changing routes in idempotentRoutes safe to
// retry. The first request with a given Idempotency-Key runs under a short
// lock; its non-5xx response is stored and replayed for later requests with
// the same key and body. A different body under the same key, or a retry
// while the first request is still running, is rejected with 409.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if idemKey == "" {
				fail(pkgerrors.Required("Idempotency-Key"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			if len(body) > maxIdempotentBody {
				fail(pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashRequest(body)
			key := store.IdempotencyKey(requestScope(r), idemKey)

			stored, err := lookupResponse(r, store, key)
			if err != nil {
				fail(err)
				return
			}
			if stored != nil {
				if stored.RequestHash != hash {
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, stored)
				return
			}

			lockKey := key + ":lock"
			locked, err := store.SetNX(ctx, lockKey, hash, idempotencyLockTTL)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock idempotency key"))
				return
			}
			if !locked {
				fail(pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress").
					WithDetails(map[string]any{responses.RetryAfterDetail: 1}))
				return
			}
			defer func() {
				if err := store.Del(ctx, lockKey); err != nil && logg != nil {
					logg.Warn(ctx, "idempotency lock release failed: "+err.Error())
				}
			}()

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				RequestHash: hash,
				StoredAt:    time.Now().UTC(),
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "persist idempotent response", err)
			}
		})
	}
}

func lookupResponse(r *http.Request, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(r.Context(), key)
	switch {
	case pkgredis.IsMissing(err):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	case raw == "":
		return nil, nil
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// requestScope keeps keys from colliding across users and endpoints.
func requestScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{UserIDFromContext(ctx), OwnerIDFromContext(ctx), r.Method, r.URL.Path}, "|")
}

func hashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		// mounted sub-routers report a partial "/*" pattern until routing ends
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for route, ttl := range idempotentRoutes {
		routeMethod, template, _ := strings.Cut(route, " ")
		if routeMethod == method && matchTemplate(template, path) {
			return ttl, true
		}
	}
	return 0, false
}

// matchTemplate compares path segment by segment. A template segment of {}
// and a chi parameter like {orderId} both match any single segment.
func matchTemplate(template, path string) bool {
	want := strings.Split(strings.TrimSuffix(template, "/"), "/")
	got := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] == "{}" || strings.HasPrefix(got[i], "{") {
			continue
		}
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
