// Package gateway performs the outbound call to a matched destination. It
// distinguishes transport failures (destination unreachable) from upstream
// responses, and optionally shields destinations behind a circuit breaker.
// Retry policy is deliberately absent: a forward is attempted exactly once.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	apperrors "api-router/internal/common/errors"
	"api-router/internal/common/logging"
)

// hop-by-hop headers are connection-scoped and must not be forwarded.
var hopByHopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"host":                {},
}

// Result is the outcome of a successful outbound call. The upstream status
// code is relayed as-is; interpreting non-2xx statuses is the caller's
// decision.
type Result struct {
	StatusCode  int
	Body        []byte
	Destination string
}

// Gateway forwards payloads to destination endpoints.
type Gateway struct {
	client  *http.Client
	breaker *Breaker
	logger  logging.Logger
}

// Option mutates a Gateway during construction.
type Option func(*Gateway)

// WithBreaker shields outbound calls with a circuit breaker.
func WithBreaker(breaker *Breaker) Option {
	return func(g *Gateway) {
		g.breaker = breaker
	}
}

// New creates a Gateway around the given HTTP client.
func New(client *http.Client, logger logging.Logger, opts ...Option) *Gateway {
	if client == nil {
		client = NewHTTPClient()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	g := &Gateway{client: client, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Forward POSTs the payload body to the destination with the given headers,
// hop-by-hop headers stripped. A transport failure surfaces as a connection
// AppError; any response from the upstream, whatever its status, surfaces
// as a Result.
func (g *Gateway) Forward(ctx context.Context, destination string, body []byte, headers http.Header) (*Result, error) {
	if destination == "" {
		return nil, apperrors.ValidationError("forward destination is empty")
	}

	if g.breaker != nil {
		return g.breaker.Forward(ctx, destination, body, headers, g.forward)
	}
	return g.forward(ctx, destination, body, headers)
}

func (g *Gateway) forward(ctx context.Context, destination string, body []byte, headers http.Header) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.ValidationError("invalid destination URI: " + destination)
	}

	req.Header.Set("Content-Type", "application/json")
	for name, values := range headers {
		if _, skip := hopByHopHeaders[strings.ToLower(name)]; skip {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("forward transport failure", err, logging.String("destination", destination))
		return nil, apperrors.ConnectionError("failed to reach target API", err).
			WithContext("destination", destination)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.Error("failed reading upstream response", err, logging.String("destination", destination))
		return nil, apperrors.UpstreamError("error reading response from target API", err).
			WithContext("destination", destination)
	}

	g.logger.Debug("forwarded request",
		logging.String("destination", destination),
		logging.Int("status", resp.StatusCode),
		logging.Int("response_bytes", len(respBody)))

	return &Result{
		StatusCode:  resp.StatusCode,
		Body:        respBody,
		Destination: destination,
	}, nil
}
