package clients

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/jsamuelsen/promptlib/internal/platform/config"
)

// retryPolicy is exponential backoff with symmetric jitter.
type retryPolicy config.RetryConfig

// attempts is how many times a request with this method may be sent.
func (p retryPolicy) attempts(method string) int {
	if p.MaxAttempts < 1 || !isIdempotent(method) {
		return 1
	}

	return p.MaxAttempts
}

// backoff returns InitialInterval * Multiplier^attempt, capped at
// MaxInterval, then spread by ±JitterFactor.
func (p retryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt))
	if ceiling := float64(p.MaxInterval); ceiling > 0 && d > ceiling {
		d = ceiling
	}

	spread := rand.Float64()*2 - 1 //nolint:gosec // jitter only
	d += d * p.JitterFactor * spread

	return time.Duration(d)
}

// isIdempotent reports whether a request with this method may be replayed.
// Creates are POSTs and are never replayed, so a retry cannot add a second
// prompt.
func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// isRetryableError accepts network timeouts and dial/connection failures.
// Cancellation and deadline errors end the call.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
