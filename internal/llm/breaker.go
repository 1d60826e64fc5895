package llm

import (
	"errors"
	"log"
	"sync"
	"time"
)

// Circuit breaker errors
var (
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"    // Normal operation
	StateOpen     CircuitState = "open"      // Failing, reject requests
	StateHalfOpen CircuitState = "half-open" // Testing if the service recovered
)

// CircuitBreaker stops calling the generative service while it keeps failing,
// so evaluations drop to the local fallback immediately instead of waiting
// out their timeout.
type CircuitBreaker struct {
	mu                   sync.Mutex
	state                CircuitState
	failureCount         int
	consecutiveSuccesses int
	halfOpenInFlight     int
	lastFailureTime      time.Time
	lastStateChange      time.Time

	failureThreshold int           // Failures before opening
	successThreshold int           // Successes to close from half-open
	cooldown         time.Duration // How long to stay open
	halfOpenMax      int           // Max concurrent requests in half-open

	totalRequests   int64
	totalFailures   int64
	totalRejections int64

	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given configuration
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}

	cb := &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: 2,
		cooldown:         cooldown,
		halfOpenMax:      1,
		now:              time.Now,
	}
	cb.lastStateChange = cb.now()

	log.Printf("[CircuitBreaker] Initialized: threshold=%d failures, cooldown=%s", failureThreshold, cooldown)
	return cb
}

// Call executes fn through the circuit breaker
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn()
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.cooldown {
			cb.setState(StateHalfOpen)
			cb.consecutiveSuccesses = 0
		} else {
			cb.totalRejections++
			return ErrCircuitOpen
		}
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.halfOpenMax {
			cb.totalRejections++
			return ErrTooManyRequests
		}
		cb.halfOpenInFlight++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasHalfOpen := cb.state == StateHalfOpen
	if wasHalfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}

	if err != nil {
		cb.totalFailures++
		cb.failureCount++
		cb.consecutiveSuccesses = 0
		cb.lastFailureTime = cb.now()

		if wasHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.setState(StateOpen)
		}
		return
	}

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
		log.Printf("[CircuitBreaker] State transition: %s -> %s", oldState, newState)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns current statistics
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":            string(cb.state),
		"total_requests":   cb.totalRequests,
		"total_failures":   cb.totalFailures,
		"total_rejections": cb.totalRejections,
		"failure_count":    cb.failureCount,
		"time_in_state":    cb.now().Sub(cb.lastStateChange).String(),
	}
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.failureCount = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenInFlight = 0
}
