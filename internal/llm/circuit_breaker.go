package llm

import (
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// CircuitBreaker stops calls to a reasoning backend that keeps failing.
type CircuitBreaker struct {
	mu                   sync.RWMutex
	state                CircuitState
	failureCount         int
	consecutiveSuccesses int
	halfOpenInFlight     int
	lastFailureTime      time.Time
	lastStateChange      time.Time

	failureThreshold int
	successThreshold int
	timeout          time.Duration
	halfOpenMax      int

	totalRequests   int64
	totalSuccesses  int64
	totalFailures   int64
	totalRejections int64

	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given configuration
func NewCircuitBreaker(failureThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 3
	}
	if timeout < time.Second {
		timeout = 5 * time.Minute
	}

	cb := &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: 3,
		timeout:          timeout,
		halfOpenMax:      3,
		now:              time.Now,
	}
	cb.lastStateChange = cb.now()

	log.Printf("[CircuitBreaker] Initialized: threshold=%d failures, timeout=%s, half_open_max=%d",
		failureThreshold, timeout, cb.halfOpenMax)
	return cb
}

// Call runs fn unless the circuit is open, and records the result.
func (cb *CircuitBreaker) Call(fn func() error) error {
	halfOpen, err := cb.beforeRequest()
	if err != nil {
		return err
	}
	err = fn()
	cb.afterRequest(halfOpen, err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) <= cb.timeout {
			cb.totalRejections++
			return false, ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.consecutiveSuccesses = 0
		cb.halfOpenInFlight = 0
		fallthrough

	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.halfOpenMax {
			cb.totalRejections++
			return false, ErrTooManyRequests
		}
		cb.halfOpenInFlight++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) afterRequest(halfOpen bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if halfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}

	if err != nil {
		cb.totalFailures++
		cb.failureCount++
		cb.consecutiveSuccesses = 0
		cb.lastFailureTime = cb.now()

		switch cb.state {
		case StateClosed:
			if cb.failureCount >= cb.failureThreshold {
				cb.setState(StateOpen)
			}
		case StateHalfOpen:
			cb.setState(StateOpen)
		}
		return
	}

	cb.totalSuccesses++
	cb.consecutiveSuccesses++

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		if cb.consecutiveSuccesses >= cb.successThreshold {
			cb.setState(StateClosed)
			cb.failureCount = 0
		}
	}
}

func (cb *CircuitBreaker) setState(newState CircuitState) {
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = cb.now()

	if oldState != newState {
		log.Printf("[CircuitBreaker] State transition: %s → %s", oldState, newState)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// IsOpen returns true if the circuit is open
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Stats returns current statistics
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	successRate := 0.0
	if cb.totalRequests > 0 {
		successRate = float64(cb.totalSuccesses) / float64(cb.totalRequests)
	}

	return map[string]interface{}{
		"state":                 string(cb.state),
		"total_requests":        cb.totalRequests,
		"total_successes":       cb.totalSuccesses,
		"total_failures":        cb.totalFailures,
		"total_rejections":      cb.totalRejections,
		"success_rate":          successRate,
		"failure_count":         cb.failureCount,
		"consecutive_successes": cb.consecutiveSuccesses,
		"time_in_state":         cb.now().Sub(cb.lastStateChange).String(),
	}
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	log.Printf("[CircuitBreaker] Manual reset: %s → CLOSED", cb.state)
	cb.setState(StateClosed)
	cb.failureCount = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenInFlight = 0
}
