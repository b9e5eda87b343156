package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/siteboss-backend/api/responses"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/realtime"
)

const sseHeartbeat = 25 * time.Second

// StreamInserts relays insert events for one table of the caller's tenant
// as server-sent events until the client disconnects. Workers only receive
// rows of their own project.
func StreamInserts(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !hub.Enabled() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "realtime disabled"))
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		table, err := realtime.ParseTable(chi.URLParam(r, "table"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported table"))
			return
		}

		if table == realtime.TableNotifications && !actor.IsOwner() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		events, closeFn, err := hub.Subscribe(r.Context(), actor.OwnerID, table)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe"))
			return
		}
		defer func() {
			if cerr := closeFn(); cerr != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", cerr.Error()), "realtime.unsubscribe_failed")
			}
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case event, open := <-events:
				if !open {
					return
				}
				if !actor.CanSee(event.ProjectID) {
					continue
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
