package errors

import (
	"errors"
	"sync"
	"time"
)

const (
	ErrorThreshold      = 0.5
	MinRequests         = 10
	TimeoutDuration     = 30 * time.Second
	HalfOpenMaxRequests = 3
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitOpen             = errors.New("circuit breaker is open")
	ErrHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

// BreakerSettings tunes a CircuitBreaker. Zero fields take package defaults.
type BreakerSettings struct {
	ErrorThreshold      float64
	MinRequests         int
	OpenTimeout         time.Duration
	HalfOpenMaxRequests int
	// IsFailure decides which errors count toward tripping. Others are
	// returned to the caller but count as a healthy response. Nil counts
	// every error.
	IsFailure func(error) bool
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.ErrorThreshold <= 0 {
		s.ErrorThreshold = ErrorThreshold
	}
	if s.MinRequests <= 0 {
		s.MinRequests = MinRequests
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = TimeoutDuration
	}
	if s.HalfOpenMaxRequests <= 0 {
		s.HalfOpenMaxRequests = HalfOpenMaxRequests
	}
	if s.IsFailure == nil {
		s.IsFailure = func(error) bool { return true }
	}
	return s
}

// CircuitBreaker stops calling a failing collaborator (payment provider,
// identity backend) until it has had time to recover.
type CircuitBreaker struct {
	mu              sync.Mutex
	name            string
	settings        BreakerSettings
	now             func() time.Time
	state           BreakerState
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
}

func NewCircuitBreaker(name string, settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{
		name:     name,
		settings: settings.withDefaults(),
		now:      time.Now,
		state:    BreakerClosed,
	}
}

// Call runs fn unless the breaker is open. A rejected call returns a
// NetworkFailure AppError wrapping ErrCircuitOpen or ErrHalfOpenTooManyRequests.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == BreakerOpen {
		if cb.now().Sub(cb.lastFailureTime) >= cb.settings.OpenTimeout {
			cb.transitionToHalfOpenLocked()
		} else {
			cb.mu.Unlock()
			return cb.rejected(ErrCircuitOpen)
		}
	}

	if cb.state == BreakerHalfOpen && cb.requests >= cb.settings.HalfOpenMaxRequests {
		cb.mu.Unlock()
		return cb.rejected(ErrHalfOpenTooManyRequests)
	}
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if callErr != nil && cb.settings.IsFailure(callErr) {
		cb.failures++
		cb.requests++

		if cb.state == BreakerHalfOpen {
			cb.tripToOpenLocked()
		} else {
			cb.evaluateState()
		}

		return callErr
	}

	cb.successes++
	cb.requests++

	if cb.state == BreakerHalfOpen && cb.successes >= cb.settings.HalfOpenMaxRequests {
		cb.state = BreakerClosed
		cb.resetCountersLocked()
	}

	return callErr
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) rejected(cause error) error {
	appErr := NewNetworkError(cb.name, cause)
	appErr.Retryable = false
	return appErr
}

func (cb *CircuitBreaker) evaluateState() {
	if cb.requests < cb.settings.MinRequests {
		return
	}

	errorRate := float64(cb.failures) / float64(cb.requests)
	if errorRate >= cb.settings.ErrorThreshold {
		cb.tripToOpenLocked()
	}
}

func (cb *CircuitBreaker) resetCountersLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) transitionToHalfOpenLocked() {
	cb.state = BreakerHalfOpen
	cb.resetCountersLocked()
}

func (cb *CircuitBreaker) tripToOpenLocked() {
	cb.state = BreakerOpen
	cb.lastFailureTime = cb.now()
	cb.resetCountersLocked()
}
