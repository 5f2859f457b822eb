package api

import (
	"net/http"
	"time"

	"jukebot/internal/auth"
	"jukebot/internal/observability/metrics"
	"jukebot/internal/storage"
)

// Handler bundles the API's collaborators. The zero value is not usable;
// construct with NewHandler.
type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	Resolver            *auth.Resolver
	SessionCookiePolicy SessionCookiePolicy

	// Metrics receives session, playback, and suggestion events. Nil falls
	// back to the process-wide recorder.
	Metrics *metrics.Recorder
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

// NewHandler wires the handler with its datastore and session manager. The
// resolver is built over the store's directory view and a fresh local token
// registry.
func NewHandler(store storage.Repository, sessions *auth.SessionManager) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return &Handler{
		Store:    store,
		Sessions: sessions,
		Resolver: auth.NewResolver(store, auth.NewLocalTokens()),
	}
}

// Health reports service liveness along with datastore reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, r)
		return
	}
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if err := h.Store.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["datastore"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
