package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MohitGoyal09/portfolio/internal/catalog"
	"github.com/MohitGoyal09/portfolio/internal/content"
	"github.com/MohitGoyal09/portfolio/internal/gemini"
	"github.com/MohitGoyal09/portfolio/internal/logger"
	"github.com/MohitGoyal09/portfolio/internal/metrics"
	"github.com/MohitGoyal09/portfolio/internal/ratelimit"
	"github.com/MohitGoyal09/portfolio/internal/server"
)

// initInfra establishes optional external connections.
// Redis is only required when RATE_LIMIT_STORE=redis.
func (a *App) initInfra(ctx context.Context) error {
	if a.cfg.RateLimit.Store == "redis" {
		a.log.Info("connecting to redis", slog.String("url", redactURL(a.cfg.Redis.URL)))

		rdb, err := connectRedis(ctx, a.cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		a.log.Info("redis connected")
	}

	return nil
}

// initUpstream builds the Gemini client. A missing credential is not fatal:
// the chat endpoint refuses requests and the rest of the site works.
func (a *App) initUpstream(ctx context.Context) error {
	prompt, err := systemPrompt(a.cfg.Gemini.SystemPromptFile)
	if err != nil {
		return err
	}

	opts := []gemini.Option{
		gemini.WithSystemPrompt(prompt),
		gemini.WithResponseHeaderTimeout(a.cfg.Gemini.ConnectTimeout),
	}
	if a.cfg.Gemini.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(a.cfg.Gemini.BaseURL))
	}
	if a.cfg.Gemini.Model != "" {
		opts = append(opts, gemini.WithModel(a.cfg.Gemini.Model))
	}

	client, err := gemini.New(a.baseCtx, a.cfg.Gemini.APIKey, opts...)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	a.upstream = client

	if !client.Configured() {
		a.log.Error("chat_not_configured",
			slog.String("missing", gemini.CredentialEnv),
			slog.String("effect", "POST /api/chat answers 500 until the key is set"),
		)
		return nil
	}
	a.log.Info("gemini client ready", slog.String("model", client.Model()))
	return nil
}

// initServices creates the metrics registry, the request log, the rate
// limiter, the content index and the scheduled jobs.
func (a *App) initServices(ctx context.Context) error {
	a.prom = metrics.New()
	a.prom.SetBuildInfo(a.version)

	reqLogger, err := logger.New(ctx, a.log)
	if err != nil {
		return fmt.Errorf("request logger: %w", err)
	}
	a.reqLogger = reqLogger

	rlCfg := ratelimit.Config{Limit: a.cfg.RateLimit.MaxRequests, Window: a.cfg.RateLimit.Window}
	switch a.cfg.RateLimit.Store {
	case "redis":
		a.limiter = ratelimit.NewRedisWindow(a.rdb, rlCfg)
		a.log.Info("rate limit store: redis")
	case "memory":
		a.memLimiter = ratelimit.NewFixedWindow(rlCfg)
		a.limiter = a.memLimiter
		a.log.Info("rate limit store: memory (in-process)")
	default:
		return fmt.Errorf("unknown rate limit store: %s", a.cfg.RateLimit.Store)
	}

	a.content = content.NewStore(a.cfg.Content.Dir, a.log)
	a.content.OnLoad(func(documents int, err error) {
		a.prom.RecordContentReload(err == nil, documents)
	})
	if err := a.content.Load(); err != nil {
		return err
	}
	if a.cfg.Content.Watch {
		a.watcher = content.NewWatcher(a.content, content.DefaultDebounce, a.log)
	}

	a.sched = newScheduler(a.log, a.prom)
	if a.memLimiter != nil {
		if err := a.sched.add("ratelimit_sweep", a.cfg.RateLimit.SweepSchedule, a.sweepRateLimit); err != nil {
			return err
		}
	}
	if err := a.sched.add("content_rescan", a.cfg.Content.RescanSchedule, a.content.Load); err != nil {
		return err
	}

	return nil
}

// initServer wires the HTTP server with all configured subsystems.
func (a *App) initServer(_ context.Context) error {
	var probes server.HealthProbes
	if a.rdb != nil {
		probes.Store = redisPinger(a.rdb)
	}

	a.srv = server.New(a.baseCtx, server.Options{
		Logger:      a.log,
		Upstream:    a.upstream,
		Limiter:     a.limiter,
		Metrics:     a.prom,
		RequestLog:  a.reqLogger,
		Content:     a.content,
		PublicDir:   a.cfg.Content.PublicDir,
		CORSOrigins: a.cfg.CORSOrigins,
		CBConfig: server.CBConfig{
			ErrorThreshold:  a.cfg.CircuitBreaker.ErrorThreshold,
			TimeWindow:      a.cfg.CircuitBreaker.TimeWindow,
			HalfOpenTimeout: a.cfg.CircuitBreaker.HalfOpenTimeout,
		},
		StreamIdleTimeout:   a.cfg.Stream.IdleTimeout,
		MaxRequestBodyBytes: a.cfg.MaxRequestBodyBytes,
		HealthProbes:        probes,
	})

	return nil
}

// sweepRateLimit drops expired in-memory windows.
func (a *App) sweepRateLimit() error {
	removed := a.memLimiter.Sweep()
	tracked := a.memLimiter.Len()
	a.prom.SetRateLimitTracked(tracked)
	a.log.Debug("rate limit sweep", slog.Int("removed", removed), slog.Int("tracked", tracked))
	return nil
}

// systemPrompt returns the assistant instructions followed by the portfolio
// digest. path, when set, replaces the built-in instructions.
func systemPrompt(path string) (string, error) {
	base := gemini.DefaultSystemPrompt
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("system prompt: %w", err)
		}
		base = string(b)
	}
	return strings.TrimSpace(base) + "\n\nPortfolio data:\n" + catalog.Summary(), nil
}

// redactURL replaces the userinfo portion of a URL with "***" for safe logging.
// e.g. "redis://:secret@localhost:6379" → "redis://***@localhost:6379"
func redactURL(raw string) string {
	for i, c := range raw {
		if c == '@' {
			for j := i - 1; j >= 0; j-- {
				if j+2 < len(raw) && raw[j:j+3] == "://" {
					return raw[:j+3] + "***" + raw[i:]
				}
			}
			return "***" + raw[i:]
		}
	}
	return raw
}
