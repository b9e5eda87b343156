package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/siteboss-backend/api/responses"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/geocode"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

// ReverseGeocode resolves lat/lng to an address. Lookup failures answer
// with an empty address rather than an error.
func ReverseGeocode(reverser geocode.Reverser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := parseCoordinate(r, "lat", 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := parseCoordinate(r, "lng", 180)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"address": geocode.BestEffort(r.Context(), reverser, lat, lng),
		})
	}
}

func parseCoordinate(r *http.Request, key string, limit float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, pkgerrors.Required(key)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < -limit || value > limit {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinate").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
