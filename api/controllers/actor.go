package controllers

import (
	"net/http"

	"github.com/angelmondragon/siteboss-backend/api/middleware"
	"github.com/angelmondragon/siteboss-backend/api/responses"
	"github.com/angelmondragon/siteboss-backend/internal/access"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

// requireActor writes 401 and reports false when Auth did not run.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (access.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated actor required"))
		return access.Actor{}, false
	}
	return actor, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
