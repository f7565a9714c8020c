package handlers

import "net/http"

// Health reports liveness and the currently configured forward targets.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"targets": h.table.Rules().Destinations(),
	})
}
