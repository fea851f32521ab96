package rpc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// circuitState mirrors the teacher's middleware.CircuitBreakerState enum,
// generalized here from gating HTTP requests to gating individual RPC call
// closures (port.RPCClient's doc comment requires every method wrapped
// with "retry/backoff and a circuit breaker").
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// circuitBreaker trips after a run of consecutive failures and refuses
// further calls until resetTimeout elapses, at which point it allows a
// single probe call through (half-open) before fully closing again.
//
// State transitions are logged through zap rather than the client's own
// zerolog logger, matching the teacher's middleware.CircuitBreaker
// (api/middleware/circuit_breaker.go), which logs its own trip/reset
// events independently of the request logger it wraps.
type circuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	logger           *zap.Logger

	mu       sync.Mutex
	state    circuitState
	failures int
	openedAt time.Time
}

func newCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{failureThreshold: failureThreshold, resetTimeout: resetTimeout, logger: zap.NewNop()}
}

var errCircuitOpen = &circuitOpenError{}

type circuitOpenError struct{}

func (*circuitOpenError) Error() string { return "circuit breaker open" }

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitOpen:
		if time.Since(cb.openedAt) >= cb.resetTimeout {
			cb.state = circuitHalfOpen
			cb.logger.Info("circuit breaker half-open, allowing probe call")
			return true
		}
		return false
	case circuitHalfOpen:
		return false
	default:
		return true
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != circuitClosed {
		cb.logger.Info("circuit breaker closed after successful probe")
	}
	cb.failures = 0
	cb.state = circuitClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if cb.state == circuitHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = circuitOpen
		cb.openedAt = time.Now()
		cb.logger.Warn("circuit breaker opened",
			zap.Int("failures", cb.failures),
			zap.Int("threshold", cb.failureThreshold),
		)
	}
}
