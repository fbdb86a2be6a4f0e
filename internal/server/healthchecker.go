package server

import (
	"context"
	"sync"
	"time"

	"github.com/MohitGoyal09/portfolio/internal/metrics"
)

const healthProbeInterval = 30 * time.Second
const healthProbeTimeout = 5 * time.Second

const (
	statusOK            = "ok"
	statusDegraded      = "degraded"
	statusDown          = "down"
	statusNotConfigured = "not_configured"
)

// componentStatus holds the last known health result for one component.
type componentStatus struct {
	mu     sync.RWMutex
	status string
}

func (s *componentStatus) set(v string) {
	s.mu.Lock()
	s.status = v
	s.mu.Unlock()
}

func (s *componentStatus) get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == "" {
		return "unknown"
	}
	return s.status
}

// HealthProbes are the optional component checks. A nil probe reports ok.
type HealthProbes struct {
	// Store pings the shared rate-limit store.
	Store func(ctx context.Context) error
	// Documents returns the number of indexed case studies.
	Documents func() int
}

// HealthChecker runs background probes and exposes the latest results.
type HealthChecker struct {
	upstream Upstream
	probes   HealthProbes
	baseCtx  context.Context
	metrics  *metrics.Registry
	interval time.Duration

	upstreamStatus componentStatus
	storeStatus    componentStatus
	contentStatus  componentStatus

	startTime time.Time
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewHealthChecker creates a HealthChecker and immediately starts background probes.
func NewHealthChecker(ctx context.Context, up Upstream, probes HealthProbes, met *metrics.Registry) *HealthChecker {
	return newHealthChecker(ctx, up, probes, met, healthProbeInterval)
}

func newHealthChecker(ctx context.Context, up Upstream, probes HealthProbes, met *metrics.Registry, interval time.Duration) *HealthChecker {
	if ctx == nil {
		panic("healthchecker: context must not be nil")
	}
	hc := &HealthChecker{
		upstream:  up,
		probes:    probes,
		baseCtx:   ctx,
		metrics:   met,
		interval:  interval,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}

	// First probe runs synchronously so health is never "unknown" once serving.
	hc.probe()

	hc.wg.Add(1)
	go hc.run()

	return hc
}

// HealthSnapshot is the GET /health body.
type HealthSnapshot struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Upstream      string `json:"upstream"`
	Model         string `json:"model,omitempty"`
	RateLimit     string `json:"rate_limit_store"`
	Content       string `json:"content"`
	Documents     int    `json:"documents"`
}

// Snapshot builds a snapshot from the latest probe results.
func (hc *HealthChecker) Snapshot() HealthSnapshot {
	snap := HealthSnapshot{
		Status:        statusOK,
		UptimeSeconds: int64(time.Since(hc.startTime).Seconds()),
		Upstream:      hc.upstreamStatus.get(),
		RateLimit:     hc.storeStatus.get(),
		Content:       hc.contentStatus.get(),
	}
	if hc.upstream != nil {
		snap.Model = hc.upstream.Model()
	}
	if hc.probes.Documents != nil {
		snap.Documents = hc.probes.Documents()
	}
	if snap.Upstream != statusOK || snap.RateLimit != statusOK {
		snap.Status = statusDegraded
	}
	return snap
}

// ReadinessOK reports whether the rate-limit store is reachable. A missing
// upstream credential does not make the server unready: every other route
// still works.
func (hc *HealthChecker) ReadinessOK() bool {
	return hc.storeStatus.get() == statusOK
}

// Close stops the background probe goroutine.
func (hc *HealthChecker) Close() {
	hc.closeOnce.Do(func() { close(hc.done) })
	hc.wg.Wait()
}

func (hc *HealthChecker) run() {
	defer hc.wg.Done()
	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hc.probe()
		case <-hc.done:
			return
		case <-hc.baseCtx.Done():
			return
		}
	}
}

func (hc *HealthChecker) probe() {
	ctx, cancel := context.WithTimeout(hc.baseCtx, healthProbeTimeout)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		switch {
		case hc.upstream == nil || !hc.upstream.Configured():
			hc.upstreamStatus.set(statusNotConfigured)
			hc.setUpstreamHealth(false)
		case hc.upstream.HealthCheck(ctx) != nil:
			hc.upstreamStatus.set(statusDegraded)
			hc.setUpstreamHealth(false)
		default:
			hc.upstreamStatus.set(statusOK)
			hc.setUpstreamHealth(true)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if hc.probes.Store == nil || hc.probes.Store(ctx) == nil {
			hc.storeStatus.set(statusOK)
		} else {
			hc.storeStatus.set(statusDown)
		}
	}()

	if hc.probes.Documents == nil || hc.probes.Documents() > 0 {
		hc.contentStatus.set(statusOK)
	} else {
		hc.contentStatus.set("empty")
	}

	wg.Wait()
}

func (hc *HealthChecker) setUpstreamHealth(ok bool) {
	if hc.metrics != nil {
		hc.metrics.SetUpstreamHealth(ok)
	}
}
