package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestWindow(clock *fakeClock) *FixedWindow {
	return NewFixedWindow(Config{Limit: 20, Window: time.Minute}, WithClock(clock.Now))
}

func TestFixedWindow_Defaults(t *testing.T) {
	f := NewFixedWindow(Config{})
	if f.Limit() != DefaultLimit || f.Window() != DefaultWindow {
		t.Errorf("defaults = %d/%s", f.Limit(), f.Window())
	}
	if got := RetryAfterSeconds(f); got != 60 {
		t.Errorf("RetryAfterSeconds = %d, want 60", got)
	}
}

func TestFixedWindow_RemainingDecreases(t *testing.T) {
	clock := newFakeClock()
	f := newTestWindow(clock)
	ctx := context.Background()

	for n := 1; n <= 20; n++ {
		d, err := f.Check(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d denied", n)
		}
		if d.Remaining != 20-n {
			t.Fatalf("request %d: remaining = %d, want %d", n, d.Remaining, 20-n)
		}
		clock.Advance(time.Second)
	}
}

func TestFixedWindow_DeniesOverLimit(t *testing.T) {
	clock := newFakeClock()
	f := newTestWindow(clock)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, _ = f.Check(ctx, "client")
	}

	d, _ := f.Check(ctx, "client")
	if d.Allowed {
		t.Fatal("21st request must be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}
	if want := clock.Now().Add(time.Minute); !d.ResetAt.Equal(want) {
		t.Errorf("ResetAt = %s, want %s", d.ResetAt, want)
	}

	// A denial does not consume budget or move the window.
	d2, _ := f.Check(ctx, "client")
	if d2.Allowed || !d2.ResetAt.Equal(d.ResetAt) {
		t.Errorf("second denial = %+v", d2)
	}
}

func TestFixedWindow_ResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	f := newTestWindow(clock)
	ctx := context.Background()

	for i := 0; i < 21; i++ {
		_, _ = f.Check(ctx, "client")
	}

	// Exactly at the reset time the old window is still live.
	clock.Advance(time.Minute)
	if d, _ := f.Check(ctx, "client"); d.Allowed {
		t.Fatal("request at reset boundary should still be denied")
	}

	clock.Advance(time.Millisecond)
	d, _ := f.Check(ctx, "client")
	if !d.Allowed {
		t.Fatal("request after window must be allowed")
	}
	if d.Remaining != 19 {
		t.Errorf("remaining = %d, want 19", d.Remaining)
	}
}

func TestFixedWindow_ClientsIndependent(t *testing.T) {
	clock := newFakeClock()
	f := newTestWindow(clock)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, _ = f.Check(ctx, "a")
	}
	if d, _ := f.Check(ctx, "a"); d.Allowed {
		t.Fatal("client a should be exhausted")
	}

	d, _ := f.Check(ctx, "b")
	if !d.Allowed || d.Remaining != 19 {
		t.Errorf("client b = %+v, want allowed with 19 remaining", d)
	}
}

func TestFixedWindow_Sweep(t *testing.T) {
	clock := newFakeClock()
	f := newTestWindow(clock)
	ctx := context.Background()

	_, _ = f.Check(ctx, "old-1")
	_, _ = f.Check(ctx, "old-2")
	clock.Advance(45 * time.Second)
	_, _ = f.Check(ctx, "fresh")
	clock.Advance(20 * time.Second)

	if removed := f.Sweep(); removed != 2 {
		t.Errorf("Sweep removed %d, want 2", removed)
	}
	if f.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.Len())
	}

	d, _ := f.Check(ctx, "fresh")
	if d.Remaining != 18 {
		t.Errorf("fresh client lost its count: remaining = %d", d.Remaining)
	}
}

func TestFixedWindow_ConcurrentChecks(t *testing.T) {
	f := NewFixedWindow(Config{Limit: 50, Window: time.Hour})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := f.Check(ctx, "shared")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}

func BenchmarkFixedWindow_Check(b *testing.B) {
	f := NewFixedWindow(Config{Limit: 1 << 30, Window: time.Hour})
	ctx := context.Background()
	ids := make([]string, 1024)
	for i := range ids {
		ids[i] = fmt.Sprintf("10.0.%d.%d", i/256, i%256)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Check(ctx, ids[i%len(ids)])
	}
}
