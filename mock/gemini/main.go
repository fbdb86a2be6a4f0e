// Command gemini runs a local HTTP mock of the Gemini streaming API so the
// chat endpoint can be exercised without credentials.
//
// Point the server at it with:
//
//	GEMINI_API_KEY=dev GEMINI_BASE_URL=http://localhost:19003/v1beta ./portfolio
//
// Behaviour flags (via env):
//
//	PORT_GEMINI          listen port (default 19003)
//	MOCK_LATENCY_MS      artificial latency before the response starts (default 0)
//	MOCK_CHUNK_DELAY_MS  delay between streamed chunks (default 40)
//	MOCK_ERROR_RATE      fraction [0,1] of requests that return HTTP 500 (default 0)
//	MOCK_FORCE_429       answer every stream request with 429 (default false)
//	MOCK_STREAM_WORDS    words in a streamed answer (default 10)
//
// A single request can also ask for a 429 with the X-Mock-Status: 429 header.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// Config holds the mock's runtime behaviour.
type Config struct {
	LatencyMS    int
	ChunkDelayMS int
	ErrorRate    float64
	Force429     bool
	StreamWords  int
}

func loadConfig() Config {
	c := Config{StreamWords: 10, ChunkDelayMS: 40}

	if v := os.Getenv("MOCK_LATENCY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LatencyMS = n
		}
	}
	if v := os.Getenv("MOCK_CHUNK_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.ChunkDelayMS = n
		}
	}
	if v := os.Getenv("MOCK_ERROR_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.ErrorRate = f
		}
	}
	if v := os.Getenv("MOCK_FORCE_429"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Force429 = b
		}
	}
	if v := os.Getenv("MOCK_STREAM_WORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.StreamWords = n
		}
	}
	return c
}

func portFromEnv(key string, defaultPort int) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return strconv.Itoa(defaultPort)
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := loadConfig()

	log.Info("starting gemini mock",
		slog.Int("latency_ms", cfg.LatencyMS),
		slog.Int("chunk_delay_ms", cfg.ChunkDelayMS),
		slog.Float64("error_rate", cfg.ErrorRate),
		slog.Bool("force_429", cfg.Force429),
		slog.Int("stream_words", cfg.StreamWords),
	)

	addr := ":" + portFromEnv("PORT_GEMINI", 19003)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newHandler(cfg, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info("gemini mock listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	fmt.Println("READY")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down gemini mock")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("gemini mock stopped")
}
