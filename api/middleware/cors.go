package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// SessionTokenHeader carries a freshly minted access token to mobile
// clients that cannot read the response body of every call.
const SessionTokenHeader = "X-SB-Token"

// localOrigins are the web dev servers allowed when no origins are
// configured.
var localOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS allows the configured browser origins. Clients need to read the
// session token, request id, replay marker and Retry-After headers, so
// those are exposed.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = localOrigins
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With", SessionTokenHeader, requestIDHeader},
		ExposedHeaders:   []string{SessionTokenHeader, requestIDHeader, ReplayedHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
