// Command portfolio serves the portfolio site API: the streaming chat
// assistant, the case-study index and the catalog endpoints.
//
// It reads configuration from environment variables (or config.yaml / .env).
// The chat endpoint needs a Gemini key; everything else runs without one:
//
//	GEMINI_API_KEY=... ./portfolio
//
// See internal/config for all available configuration variables.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MohitGoyal09/portfolio/internal/app"
	"github.com/MohitGoyal09/portfolio/internal/config"
	"github.com/MohitGoyal09/portfolio/internal/logger"
)

// version is overridden at build time via -ldflags="-X main.version=x.y.z".
var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg := logger.NewSlog(cfg.LogLevel)
	slog.SetDefault(lg)

	a, err := app.New(ctx, cfg, lg, version)
	if err != nil {
		lg.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		lg.Error("portfolio stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
