package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-process fixed-window counter keyed by client ID.
//
// Each client has at most one live entry. An entry whose reset time has
// passed is replaced by a fresh one on the client's next request; Sweep
// removes such entries for clients that never come back.
type FixedWindow struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

// NewFixedWindow creates an empty in-memory store.
func NewFixedWindow(cfg Config, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		entries: make(map[string]*windowEntry),
		limit:   cfg.limit(),
		window:  cfg.window(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *FixedWindow) Limit() int            { return f.limit }
func (f *FixedWindow) Window() time.Duration { return f.window }

// Check counts one request for clientID. It never returns an error.
func (f *FixedWindow) Check(_ context.Context, clientID string) (Decision, error) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[clientID]
	if !ok || now.After(e.resetAt) {
		e = &windowEntry{count: 1, resetAt: now.Add(f.window)}
		f.entries[clientID] = e
		return Decision{Allowed: true, Limit: f.limit, Remaining: f.limit - 1, ResetAt: e.resetAt}, nil
	}

	if e.count >= f.limit {
		return Decision{Allowed: false, Limit: f.limit, Remaining: 0, ResetAt: e.resetAt}, nil
	}

	e.count++
	return Decision{Allowed: true, Limit: f.limit, Remaining: f.limit - e.count, ResetAt: e.resetAt}, nil
}

// Sweep deletes every expired entry and returns how many were removed.
func (f *FixedWindow) Sweep() int {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for id, e := range f.entries {
		if now.After(e.resetAt) {
			delete(f.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients, expired or not.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
