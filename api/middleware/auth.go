package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/siteboss-backend/api/responses"
	"github.com/angelmondragon/siteboss-backend/internal/access"
	pkgAuth "github.com/angelmondragon/siteboss-backend/pkg/auth"
	"github.com/angelmondragon/siteboss-backend/pkg/auth/session"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// BearerToken returns the Authorization header value with any Bearer scheme
// stripped. Mobile clients send the bare token.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(raw[len(bearerPrefix):])
	}
	return raw
}

// Auth admits requests carrying a valid access token whose session is still
// live, and puts the caller on the request context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActorFields(WithActor(r.Context(), actor), logg, actor)))
		})
	}
}

// RequireRoles runs after Auth and admits only the listed roles.
func RequireRoles(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated actor required"))
				return
			}
			if err := actor.Require(roles...); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (access.Actor, error) {
	token := BearerToken(r)
	if token == "" {
		return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return access.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	// logout deletes the session and worker revocation outdates it, so a
	// signed token alone is not enough
	if sessions != nil {
		live, err := sessions.HasSession(r.Context(), claims.ID)
		switch {
		case err != nil:
			return access.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		case !live:
			return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	actor := access.Actor{
		UserID:    claims.UserID,
		OwnerID:   claims.OwnerID,
		Role:      claims.Role,
		ProjectID: claims.ProjectID,
		Name:      claims.Name,
	}
	return actor, actor.Validate()
}

func withActorFields(ctx context.Context, logg *logger.Logger, actor access.Actor) context.Context {
	if logg == nil {
		return ctx
	}
	ctx = logg.WithUserID(ctx, actor.UserID.String())
	ctx = logg.WithOwnerID(ctx, actor.OwnerID.String())
	ctx = logg.WithActorRole(ctx, string(actor.Role))
	if actor.ProjectID != nil {
		ctx = logg.WithProjectID(ctx, actor.ProjectID.String())
	}
	return ctx
}
