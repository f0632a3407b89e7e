package httpapi

import "net/http"

// handleIngestRefresh queues an out-of-band refresh cycle. The request
// returns immediately; progress is visible via /ingest/status.
func (h *Handler) handleIngestRefresh(w http.ResponseWriter, r *http.Request) {
	h.ingest.RefreshNow()
	h.writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func (h *Handler) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.ingest.LastCycle()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"loading":    h.ingest.Loading(),
		"ready":      h.ingest.Ready(),
		"last_cycle": stats,
	})
}
