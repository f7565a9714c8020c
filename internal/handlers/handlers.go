// Package handlers implements the HTTP boundary of the router. It is the
// only layer that translates core outcomes (no match, absent destination,
// gateway failure) into protocol-level responses.
package handlers

import (
	"encoding/json"
	"net/http"

	"api-router/internal/common/logging"
	"api-router/internal/config"
	"api-router/internal/gateway"
	"api-router/internal/routing"
	"api-router/internal/storage"
)

type Handlers struct {
	storage storage.Storage
	gateway *gateway.Gateway
	table   *routing.Table
	config  *config.Config
	logger  logging.Logger
}

func New(store storage.Storage, gw *gateway.Gateway, table *routing.Table, cfg *config.Config, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		storage: store,
		gateway: gw,
		table:   table,
		config:  cfg,
		logger:  logger,
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse mirrors the {"detail": ...} failure shape clients of this
// service already parse.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
