package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	apperrors "api-router/internal/common/errors"
	"api-router/internal/common/logging"
	"api-router/internal/metrics"
	"api-router/internal/routing"
)

// forwardResponse relays the upstream outcome to the caller.
type forwardResponse struct {
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data"`
	TargetURL  string      `json:"target_url"`
}

// Forward matches the JSON body against the active rule set and forwards it
// to the winning rule's destination.
func (h *Handlers) Forward(w http.ResponseWriter, r *http.Request) {
	metrics.ForwardRequests.Inc()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 || !gjson.ValidBytes(body) {
		respondError(w, http.StatusBadRequest, "Payload data is required for routing")
		return
	}

	rules := h.table.Rules()
	rule, ok := routing.Match(rules, body)
	if !ok {
		metrics.NoMatch.Inc()
		h.logger.Warn("no rule matched for payload",
			logging.Int("rules", len(rules)))
		respondError(w, http.StatusBadRequest, "No matching target API for filter condition")
		return
	}

	metrics.RuleMatches.Inc()
	h.logger.Info("matched rule",
		logging.String("field", rule.Field),
		logging.String("op", string(rule.Op)),
		logging.Any("value", rule.Value),
		logging.String("destination", rule.Destination))

	// A matched rule with no destination is a configuration problem, not a
	// reason to keep scanning: first logical match wins.
	if rule.Destination == "" {
		respondError(w, http.StatusBadRequest, "No matching target API for filter condition")
		return
	}

	result, err := h.gateway.Forward(r.Context(), rule.Destination, body, r.Header)
	if err != nil {
		metrics.ForwardFailures.Inc()
		h.logger.Error("forwarding failed", err, logging.String("destination", rule.Destination))
		switch apperrors.GetType(err) {
		case apperrors.ErrTypeConnection:
			respondError(w, http.StatusBadGateway, "Failed to reach target API")
		case apperrors.ErrTypeUpstream:
			respondError(w, http.StatusBadGateway, "Error communicating with target API")
		default:
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	var data interface{}
	if len(result.Body) > 0 {
		if err := json.Unmarshal(result.Body, &data); err != nil {
			data = string(result.Body)
		}
	}

	respondJSON(w, http.StatusOK, forwardResponse{
		StatusCode: result.StatusCode,
		Data:       data,
		TargetURL:  result.Destination,
	})
}
