package infra

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is refusing calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker guards calls to an external service. After maxFailures
// consecutive failures the breaker opens and rejects calls until the cooldown
// elapses; the next call then probes half-open and either closes the breaker
// or re-opens it.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
}

func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{maxFailures: maxFailures, cooldown: cooldown}
}

// Execute runs fn under the breaker's supervision.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case stateOpen:
		if time.Since(cb.openedAt) < cb.cooldown {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = stateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		if cb.state == stateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = stateOpen
			cb.openedAt = time.Now()
		}
		return err
	}
	cb.failures = 0
	cb.state = stateClosed
	return nil
}

// Open reports whether the breaker is currently rejecting calls.
func (cb *CircuitBreaker) Open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state == stateOpen && time.Since(cb.openedAt) < cb.cooldown
}
