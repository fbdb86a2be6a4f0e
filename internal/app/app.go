// Package app wires up all subsystems and owns the application lifecycle.
//
// Startup order:
//  1. initInfra   : external connections (Redis when the rate limit store needs it)
//  2. initUpstream: Gemini client and assistant instructions
//  3. initServices: metrics, request log, rate limiter, content index, scheduled jobs
//  4. initServer  : HTTP routes
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MohitGoyal09/portfolio/internal/config"
	"github.com/MohitGoyal09/portfolio/internal/content"
	"github.com/MohitGoyal09/portfolio/internal/gemini"
	"github.com/MohitGoyal09/portfolio/internal/logger"
	"github.com/MohitGoyal09/portfolio/internal/metrics"
	"github.com/MohitGoyal09/portfolio/internal/ratelimit"
	"github.com/MohitGoyal09/portfolio/internal/server"
)

const shutdownTimeout = 10 * time.Second

// App owns all long-lived resources and exposes Run / Close.
type App struct {
	version string
	cfg     *config.Config
	baseCtx context.Context
	log     *slog.Logger

	// Optional external connections, nil when not configured.
	rdb *redis.Client

	reqLogger *logger.Logger
	prom      *metrics.Registry

	upstream *gemini.Client
	limiter  ratelimit.Limiter
	// memLimiter is set when the in-process store is used; the sweep job
	// needs it.
	memLimiter *ratelimit.FixedWindow

	content *content.Store
	watcher *content.Watcher
	sched   *scheduler

	srv *server.Server

	closeOnce sync.Once
}

// New initialises all subsystems and returns a ready-to-run App.
// All resources allocated here are released by Close.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, version string) (*App, error) {
	if ctx == nil {
		return nil, fmt.Errorf("app: context must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	a := &App{cfg: cfg, version: version, baseCtx: ctx, log: log}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"infra", a.initInfra},
		{"upstream", a.initUpstream},
		{"services", a.initServices},
		{"server", a.initServer},
	}

	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("app: init %s: %w", s.name, err)
		}
	}

	return a, nil
}

// Run starts the HTTP server, the content watcher and the scheduled jobs,
// and blocks until ctx is cancelled or one of them fails. It closes the app
// when returning.
func (a *App) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.cfg.Port)

	a.log.Info("starting portfolio server",
		slog.String("version", a.version),
		slog.String("addr", addr),
		slog.String("model", a.upstream.Model()),
		slog.Bool("chat_configured", a.upstream.Configured()),
		slog.String("rate_limit_store", a.cfg.RateLimit.Store),
		slog.Int("documents", len(a.content.All())),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.srv.ListenAndServe(addr)
	})

	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(gctx)
		})
	}

	a.sched.start()

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server shutdown error", slog.String("error", err.Error()))
		}
		a.Close()
		return nil
	})

	return g.Wait()
}

// Close releases all resources in reverse-init order. Safe to call multiple
// times and from multiple goroutines.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.srv != nil {
			a.srv.Close()
		}
		if a.sched != nil {
			a.sched.stop()
		}
		if a.reqLogger != nil {
			if err := a.reqLogger.Close(); err != nil {
				a.log.Error("logger close error", slog.String("error", err.Error()))
			}
		}
		if a.rdb != nil {
			if err := a.rdb.Close(); err != nil {
				a.log.Error("redis close error", slog.String("error", err.Error()))
			}
		}
	})
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.srv }

// ── Private helpers ──────────────────────────────────────────────────────────

// connectRedis parses the URL and verifies connectivity with a PING.
func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return rdb, nil
}

// redisPinger returns a probe for the HealthChecker that reuses the existing
// client.
func redisPinger(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}
}
