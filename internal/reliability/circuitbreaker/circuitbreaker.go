package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker rejects calls
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker stops calling a dependency after repeated failures and
// tries it again once the cool-down has passed.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
	onStateChange    func(from, to State)
}

// New creates a breaker that opens after failureThreshold consecutive
// failures and closes after successThreshold half-open successes.
func New(failureThreshold, successThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: max(failureThreshold, 1),
		successThreshold: max(successThreshold, 1),
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// OnStateChange registers a callback for state transitions. It runs with
// the breaker locked and must not call back into it.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Do runs fn unless the breaker is open, and records its outcome.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if !cb.allow() {
		return ErrOpen
	}
	err := fn()
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateOpen {
		return true
	}
	if cb.now().Sub(cb.openedAt) < cb.cooldown {
		return false
	}
	cb.transition(StateHalfOpen)
	return true
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case ok && cb.state == StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transition(StateClosed)
		}
	case ok:
		cb.failures = 0
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
	default:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}
