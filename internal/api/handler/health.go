package handler

import "net/http"

// Health handles the unauthenticated GET /v1/health route: a Postgres
// ping, distinct from the per-cluster dispatcher watcher-liveness check
// exposed by internal/dispatcher/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
