package sse

import (
	"io"
	"sync"
	"time"
)

// IdleReader calls onIdle when a single Read blocks for longer than the
// timeout. onIdle is expected to unblock the read, typically by cancelling
// the upstream request context.
type IdleReader struct {
	r       io.Reader
	timeout time.Duration

	mu    sync.Mutex
	timer *time.Timer
	fired bool
}

// NewIdleReader wraps r. A zero or negative timeout disables the watchdog.
func NewIdleReader(r io.Reader, timeout time.Duration, onIdle func()) *IdleReader {
	ir := &IdleReader{r: r, timeout: timeout}
	if timeout > 0 {
		ir.timer = time.AfterFunc(timeout, func() {
			ir.mu.Lock()
			ir.fired = true
			ir.mu.Unlock()
			onIdle()
		})
		ir.timer.Stop()
	}
	return ir
}

func (ir *IdleReader) Read(p []byte) (int, error) {
	if ir.timer == nil {
		return ir.r.Read(p)
	}
	ir.timer.Reset(ir.timeout)
	n, err := ir.r.Read(p)
	ir.timer.Stop()
	return n, err
}

// TimedOut reports whether the watchdog fired.
func (ir *IdleReader) TimedOut() bool {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	return ir.fired
}

// Stop disarms the watchdog.
func (ir *IdleReader) Stop() {
	if ir.timer != nil {
		ir.timer.Stop()
	}
}
