package controllers

import (
	"net/http"

	"github.com/angelmondragon/siteboss-backend/api/responses"
	"github.com/angelmondragon/siteboss-backend/internal/dashboard"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

// DashboardStats returns the owner console headline numbers.
func DashboardStats(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "dashboard")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		stats, err := svc.Stats(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func DashboardMap(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "dashboard")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		sites, err := svc.MapSites(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"sites": sites})
	}
}
