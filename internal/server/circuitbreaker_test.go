package server

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg CBConfig) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return newCircuitBreaker(cfg, clk.now), clk
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(CBConfig{ErrorThreshold: 3})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if !cb.Allow() {
			t.Fatalf("breaker opened after %d failures", i+1)
		}
	}
	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("breaker should be open after 3 failures")
	}
	if cb.StateLabel() != "open" {
		t.Errorf("state = %s", cb.StateLabel())
	}
}

func TestCircuitBreaker_WindowResetsCount(t *testing.T) {
	cb, clk := newTestBreaker(CBConfig{ErrorThreshold: 2, TimeWindow: time.Minute})

	cb.RecordFailure()
	clk.advance(2 * time.Minute)
	cb.RecordFailure()

	if !cb.Allow() {
		t.Error("failures in different windows must not add up")
	}
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	cb, clk := newTestBreaker(CBConfig{ErrorThreshold: 1, HalfOpenTimeout: 30 * time.Second})

	cb.RecordFailure()
	if got := cb.RetryAfter(); got != 30 {
		t.Errorf("retry after = %d", got)
	}

	clk.advance(10 * time.Second)
	if cb.Allow() {
		t.Fatal("breaker must stay open before the half-open timeout")
	}
	if got := cb.RetryAfter(); got != 20 {
		t.Errorf("retry after = %d", got)
	}

	clk.advance(20 * time.Second)
	if !cb.Allow() {
		t.Fatal("first request after timeout must be let through as a probe")
	}
	if cb.Allow() {
		t.Fatal("second request must wait for the probe")
	}

	cb.RecordSuccess()
	if cb.StateLabel() != "closed" || !cb.Allow() {
		t.Errorf("successful probe must close the breaker, state %s", cb.StateLabel())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clk := newTestBreaker(CBConfig{ErrorThreshold: 5, HalfOpenTimeout: time.Second})

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	clk.advance(time.Second)
	if !cb.Allow() {
		t.Fatal("probe expected")
	}
	cb.RecordFailure()
	if cb.StateLabel() != "open" || cb.Allow() {
		t.Errorf("failed probe must reopen, state %s", cb.StateLabel())
	}
}

func TestCircuitBreaker_ReleaseFreesProbe(t *testing.T) {
	cb, clk := newTestBreaker(CBConfig{ErrorThreshold: 1, HalfOpenTimeout: time.Second})

	cb.RecordFailure()
	clk.advance(time.Second)
	_ = cb.Allow()
	cb.Release()

	if !cb.Allow() {
		t.Error("released probe slot should admit the next request")
	}
}

func TestCircuitBreaker_OnChange(t *testing.T) {
	cb, clk := newTestBreaker(CBConfig{ErrorThreshold: 1, HalfOpenTimeout: time.Second})
	var seen []string
	cb.onChange = func(s cbState) { seen = append(seen, stateLabel(s)) }

	cb.RecordFailure()
	clk.advance(time.Second)
	_ = cb.Allow()
	cb.RecordSuccess()
	cb.RecordSuccess()

	if got := len(seen); got != 3 || seen[0] != "open" || seen[1] != "half_open" || seen[2] != "closed" {
		t.Errorf("transitions = %v", seen)
	}
}
