package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	apperrors "api-router/internal/common/errors"
	"api-router/internal/common/logging"
)

// BreakerConfig holds circuit breaker settings for outbound forwarding.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the
	// circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before half-open probing.
	Timeout time.Duration
	// MaxConcurrentRequests is the number of probe requests allowed while
	// half-open.
	MaxConcurrentRequests int
}

// DefaultBreakerConfig returns sensible defaults for outbound HTTP calls.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:           5,
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 1,
	}
}

// Breaker wraps sony/gobreaker for the forwarding path. Only transport
// failures count toward opening the circuit; upstream error statuses are
// still responses.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
}

// NewBreaker creates a circuit breaker with the given configuration.
func NewBreaker(name string, cfg BreakerConfig, logger logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if cfg.MaxFailures <= 0 {
		cfg = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.MaxConcurrentRequests),
		Interval:    time.Minute,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// Only transport-level failures should trip the breaker.
			return err == nil || !apperrors.IsType(err, apperrors.ErrTypeConnection)
		},
	}

	return &Breaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

type forwardFunc func(ctx context.Context, destination string, body []byte, headers http.Header) (*Result, error)

// Forward executes fn inside the breaker. An open circuit surfaces as a
// connection error so the boundary maps it to the same gateway-error class
// as an unreachable destination.
func (b *Breaker) Forward(ctx context.Context, destination string, body []byte, headers http.Header, fn forwardFunc) (*Result, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return fn(ctx, destination, body, headers)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.ConnectionError("destination circuit open", err).
			WithContext("destination", destination)
	}
	if err != nil {
		return nil, err
	}
	return result.(*Result), nil
}
