// Package ratelimit implements per-client admission control for the chat
// endpoint using fixed-window counters.
//
// Two stores are provided: FixedWindow keeps counters in process memory and
// RedisWindow keeps them in Redis (atomic Lua script) so several replicas
// can share one budget. Both satisfy Limiter.
package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultLimit is the number of requests a client may make per window.
	DefaultLimit = 20
	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Minute
)

// Config holds the window parameters shared by all stores.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) limit() int {
	if c.Limit > 0 {
		return c.Limit
	}
	return DefaultLimit
}

func (c Config) window() time.Duration {
	if c.Window > 0 {
		return c.Window
	}
	return DefaultWindow
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the client's current window expires.
	ResetAt time.Time
}

// Limiter decides whether a client may make another request.
//
// Implementations must be safe for concurrent use. When the backing store
// fails, Check returns an allowing Decision together with the error so the
// caller can record the degradation without rejecting traffic.
type Limiter interface {
	Check(ctx context.Context, clientID string) (Decision, error)
	Limit() int
	Window() time.Duration
}

// RetryAfterSeconds is the retry hint sent with a denial: the window length.
func RetryAfterSeconds(l Limiter) int {
	s := int(l.Window() / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
