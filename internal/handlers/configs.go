package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"api-router/internal/common/logging"
	"api-router/internal/metrics"
	"api-router/internal/storage"
)

// UpdateConfig merges a partial (possibly legacy-shaped) configuration
// document into the persisted document, re-normalizes and atomically swaps
// the active rule set.
func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	update := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !update.IsObject() {
		respondError(w, http.StatusBadRequest, "config update must be a JSON object")
		return
	}

	merged := mergeDocument(h.table.Document(), update)

	if err := h.storage.SaveConfig(r.Context(), h.config.DefaultConfigName, merged); err != nil {
		h.logger.Error("failed to persist updated config", err)
		respondError(w, http.StatusInternalServerError, "failed to persist configuration")
		return
	}

	rules := h.table.Publish(merged)
	metrics.ConfigReloads.Inc()
	metrics.ActiveRules.Set(float64(len(rules)))

	h.logger.Info("filter config updated", logging.Int("rules", len(rules)))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Filter config updated",
		"config":  json.RawMessage(merged),
	})
}

// mergeDocument merges update into current key-by-key when current is a
// mapping; any other current shape is replaced wholesale. Existing keys
// keep their position, new keys append, so rule order stays deterministic.
func mergeDocument(current []byte, update gjson.Result) []byte {
	if !gjson.ParseBytes(current).IsObject() {
		return []byte(update.Raw)
	}

	merged := current
	update.ForEach(func(key, value gjson.Result) bool {
		out, err := sjson.SetRawBytes(merged, escapePathKey(key.Str), []byte(value.Raw))
		if err != nil {
			return true
		}
		merged = out
		return true
	})
	return merged
}

// escapePathKey backslash-escapes the characters sjson path syntax assigns
// meaning to, so a dotted field specifier used as a mapping key stays one
// literal top-level key instead of becoming a nested path.
func escapePathKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '\\', '.', '|', '#', '@', '*', '?':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetConfig returns the raw persisted configuration document.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	doc := h.table.Document()
	if len(doc) == 0 {
		doc = []byte("null")
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config": json.RawMessage(doc),
	})
}

// ReloadConfig re-reads the named document from the store and swaps the
// active rule set. When the store has no document, the current rules stay;
// a store failure is not a missing document and surfaces as an error.
func (h *Handlers) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	record, err := h.storage.LoadConfig(r.Context(), h.config.DefaultConfigName)
	if errors.Is(err, storage.ErrNotFound) {
		h.logger.Warn("no config found in store, keeping current rules", logging.Err(err))
		doc := h.table.Document()
		if len(doc) == 0 {
			doc = []byte("null")
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "No config found in database, using default",
			"config":  json.RawMessage(doc),
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load config from store", err)
		respondError(w, http.StatusInternalServerError, "Failed to load config from database")
		return
	}

	rules := h.table.Publish(record.Document)
	metrics.ConfigReloads.Inc()
	metrics.ActiveRules.Set(float64(len(rules)))

	h.logger.Info("filter config reloaded from store", logging.Int("rules", len(rules)))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Filter config reloaded from database",
		"config":  json.RawMessage(record.Document),
	})
}
