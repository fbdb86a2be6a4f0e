package server

import (
	"sync"
	"time"
)

// cbState represents the operational state of the upstream circuit breaker.
//
//	cbClosed  : normal operation; all requests pass through.
//	cbOpen    : upstream is failing; requests are rejected immediately.
//	cbHalfOpen: recovery probe; one request is allowed through.
type cbState int

const (
	cbClosed   cbState = 0
	cbOpen     cbState = 1
	cbHalfOpen cbState = 2
)

const (
	defaultCBErrorThreshold  = 5
	defaultCBTimeWindow      = 60 * time.Second
	defaultCBHalfOpenTimeout = 30 * time.Second
)

// CBConfig holds circuit breaker tuning parameters. Zero values fall back to
// the package defaults.
type CBConfig struct {
	// ErrorThreshold is the number of failures within TimeWindow that trips
	// the breaker. Default: 5.
	ErrorThreshold int

	// TimeWindow is the window for counting errors. Default: 60s.
	TimeWindow time.Duration

	// HalfOpenTimeout is how long the breaker stays open before allowing a
	// single probe request. Default: 30s.
	HalfOpenTimeout time.Duration
}

func (c *CBConfig) errorThreshold() int {
	if c.ErrorThreshold > 0 {
		return c.ErrorThreshold
	}
	return defaultCBErrorThreshold
}

func (c *CBConfig) timeWindow() time.Duration {
	if c.TimeWindow > 0 {
		return c.TimeWindow
	}
	return defaultCBTimeWindow
}

func (c *CBConfig) halfOpenTimeout() time.Duration {
	if c.HalfOpenTimeout > 0 {
		return c.HalfOpenTimeout
	}
	return defaultCBHalfOpenTimeout
}

// CircuitBreaker guards the completion upstream. It is safe for concurrent
// use.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg CBConfig
	now func() time.Time

	state         cbState
	errorCount    int
	windowStart   time.Time
	openedAt      time.Time
	probeInflight bool

	// onChange is called with the new state after every transition.
	onChange func(cbState)
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CBConfig) *CircuitBreaker {
	return newCircuitBreaker(cfg, time.Now)
}

func newCircuitBreaker(cfg CBConfig, now func() time.Time) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:         cfg,
		now:         now,
		state:       cbClosed,
		windowStart: now(),
	}
}

// Allow reports whether the next request may reach the upstream.
//
//   - Closed  → always true.
//   - Open    → false, unless the half-open timeout has elapsed, in which case
//     the breaker transitions to HalfOpen and allows one probe.
//   - HalfOpen → true only if no probe is currently in flight.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case cbOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cfg.halfOpenTimeout() {
			cb.transition(cbHalfOpen)
			cb.probeInflight = true
			return true
		}
		return false

	case cbHalfOpen:
		if cb.probeInflight {
			return false
		}
		cb.probeInflight = true
		return true
	}

	return true
}

// RetryAfter returns the seconds left until the breaker admits a probe,
// never less than one.
func (cb *CircuitBreaker) RetryAfter() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	left := cb.cfg.halfOpenTimeout()
	if cb.state == cbOpen {
		left -= cb.now().Sub(cb.openedAt)
	}
	s := int((left + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// RecordSuccess resets the breaker to Closed regardless of its previous state.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transition(cbClosed)
	cb.errorCount = 0
	cb.probeInflight = false
	cb.windowStart = cb.now()
}

// RecordFailure increments the error counter. When the counter reaches
// ErrorThreshold within TimeWindow the breaker opens. A failed half-open
// probe reopens it at once.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	if now.Sub(cb.windowStart) > cb.cfg.timeWindow() {
		cb.errorCount = 0
		cb.windowStart = now
	}

	cb.errorCount++

	if cb.state == cbHalfOpen || cb.errorCount >= cb.cfg.errorThreshold() {
		cb.transition(cbOpen)
		cb.openedAt = now
	}
	cb.probeInflight = false
}

// Release frees a half-open probe slot without judging the upstream, for
// requests that ended before the upstream answered.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	cb.probeInflight = false
	cb.mu.Unlock()
}

// State returns the current state (useful for metrics export).
func (cb *CircuitBreaker) State() cbState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// StateLabel returns a human-readable state name: "closed", "open", or "half_open".
func (cb *CircuitBreaker) StateLabel() string {
	return stateLabel(cb.State())
}

func stateLabel(st cbState) string {
	switch st {
	case cbOpen:
		return "open"
	case cbHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

func (cb *CircuitBreaker) transition(to cbState) {
	if cb.state == to {
		return
	}
	cb.state = to
	if cb.onChange != nil {
		cb.onChange(to)
	}
}
