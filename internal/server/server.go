// Package server is the HTTP surface of the portfolio backend.
//
// The chat endpoint admits a request through the rate limiter, validates it,
// opens one streaming completion call and transcodes the upstream events into
// the site's own event stream. The remaining routes serve the portfolio
// catalog, the case-study index, the mode preference and health data.
//
// Key design constraints:
//   - Every dependency is injected through Options; nothing lives in package
//     globals.
//   - Request logger and health probes are optional and nil-safe.
//   - Upstream I/O hangs off the server's base context, so shutdown cancels
//     every open stream.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/MohitGoyal09/portfolio/internal/chat"
	"github.com/MohitGoyal09/portfolio/internal/content"
	"github.com/MohitGoyal09/portfolio/internal/logger"
	"github.com/MohitGoyal09/portfolio/internal/metrics"
	"github.com/MohitGoyal09/portfolio/internal/ratelimit"
)

const (
	defaultIdleTimeout  = 30 * time.Second
	defaultMaxBodyBytes = 256 << 10
)

// Upstream is the completion provider behind /api/chat.
// *gemini.Client satisfies it.
type Upstream interface {
	Configured() bool
	Model() string
	Stream(ctx context.Context, req *chat.Request) (io.ReadCloser, error)
	HealthCheck(ctx context.Context) error
}

// Options holds the server dependencies. Upstream and Limiter are required;
// everything else has a usable zero value.
type Options struct {
	// Logger is the structured logger for request events. Defaults to
	// slog.Default().
	Logger *slog.Logger

	Upstream Upstream
	Limiter  ratelimit.Limiter

	// Metrics defaults to a fresh private registry.
	Metrics *metrics.Registry

	// RequestLog receives one entry per finished chat request.
	RequestLog *logger.Logger

	// Content is the case-study index. Nil serves an empty index.
	Content *content.Store

	// PublicDir holds the static certificates/ directory.
	PublicDir string

	// CORSOrigins lists allowed origins; empty or ["*"] allows all.
	CORSOrigins []string

	CBConfig CBConfig

	// StreamIdleTimeout aborts a stream when the upstream sends nothing for
	// this long. Zero means 30s; negative disables the watchdog.
	StreamIdleTimeout time.Duration

	// MaxRequestBodyBytes caps request bodies. Default: 256 KiB.
	MaxRequestBodyBytes int

	HealthProbes HealthProbes
}

// Server wires the HTTP routes to their dependencies.
type Server struct {
	baseCtx  context.Context
	log      *slog.Logger
	upstream Upstream
	limiter  ratelimit.Limiter
	metrics  *metrics.Registry
	reqLog   *logger.Logger
	content  *content.Store
	cb       *CircuitBreaker
	health   *HealthChecker

	publicDir    string
	corsOrigins  []string
	idleTimeout  time.Duration
	maxBodyBytes int

	srv *fasthttp.Server
}

// New creates a Server. It starts the background health probes, which stop
// when ctx is done or Close is called.
func New(ctx context.Context, opts Options) *Server {
	if ctx == nil {
		panic("server: context must not be nil")
	}
	if opts.Upstream == nil || opts.Limiter == nil {
		panic("server: upstream and limiter are required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	met := opts.Metrics
	if met == nil {
		met = metrics.New()
	}
	store := opts.Content
	if store == nil {
		store = content.NewStore("", log)
	}
	idle := opts.StreamIdleTimeout
	if idle == 0 {
		idle = defaultIdleTimeout
	}
	maxBody := opts.MaxRequestBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	s := &Server{
		baseCtx:      ctx,
		log:          log,
		upstream:     opts.Upstream,
		limiter:      opts.Limiter,
		metrics:      met,
		reqLog:       opts.RequestLog,
		content:      store,
		cb:           NewCircuitBreaker(opts.CBConfig),
		publicDir:    opts.PublicDir,
		corsOrigins:  opts.CORSOrigins,
		idleTimeout:  idle,
		maxBodyBytes: maxBody,
	}

	s.cb.onChange = func(st cbState) {
		s.metrics.SetCircuitBreaker(int64(st))
		s.log.Warn("circuit_breaker_transition", slog.String("state", stateLabel(st)))
	}
	s.metrics.SetCircuitBreaker(int64(cbClosed))

	probes := opts.HealthProbes
	if probes.Documents == nil {
		probes.Documents = func() int { return len(store.All()) }
	}
	s.health = NewHealthChecker(ctx, s.upstream, probes, s.metrics)

	s.srv = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "portfolio",
		ReadTimeout:        60 * time.Second,
		WriteTimeout:       60 * time.Second,
		MaxRequestBodySize: maxBody,
		Logger:             slogPrinter{log},
	}

	return s
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// ListenAndServe listens on addr (e.g. ":8080") and serves.
func (s *Server) ListenAndServe(addr string) error {
	return s.srv.ListenAndServe(addr)
}

// Shutdown stops accepting connections and waits for open ones to finish
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Close stops the background health probes.
func (s *Server) Close() {
	s.health.Close()
}

// slogPrinter routes fasthttp's internal error log through slog.
type slogPrinter struct{ log *slog.Logger }

func (p slogPrinter) Printf(format string, args ...any) {
	p.log.Warn("fasthttp", slog.String("detail", fmt.Sprintf(format, args...)))
}
