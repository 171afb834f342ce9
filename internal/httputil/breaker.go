// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pdiddy/evidence-engine/internal/metrics"
)

// ErrCallTimeout marks a call that ran out its own timeout while the
// caller's context was still live. Breakers count it as a failure.
var ErrCallTimeout = errors.New("call timed out")

// CallTimeout rewrites a deadline error as ErrCallTimeout when parent has
// not ended, so a slow upstream is not mistaken for an expiring request.
// Any other err is returned unchanged.
func CallTimeout(parent context.Context, err error) error {
	if err == nil || parent.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrCallTimeout, err)
}

// BreakerConfig configures a circuit breaker around one remote dependency.
type BreakerConfig struct {
	Name string

	// ConsecutiveFailures opens the breaker. Default: 5.
	ConsecutiveFailures uint32

	// OpenTimeout is how long the breaker stays open before a trial call. Default: 30s.
	OpenTimeout time.Duration

	// HalfOpenRequests is the number of trial calls allowed while half-open. Default: 1.
	HalfOpenRequests uint32

	// Exclude marks errors that say nothing about upstream health, such as a
	// local rate-limit rejection. Excluded errors do not count as failures.
	Exclude func(error) bool
}

// NewBreaker builds a gobreaker circuit breaker that logs transitions and
// exports its state on the evidence_circuit_breaker_state gauge.
// Context cancellation and deadline errors never count as failures; wrap
// per-call timeouts with CallTimeout to have them counted.
func NewBreaker[T any](cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	threshold := cfg.ConsecutiveFailures
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return cfg.Exclude != nil && cfg.Exclude(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

// BreakerRejected reports whether err came from an open or saturated breaker.
func BreakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
