// Package config loads and validates all runtime configuration for the
// portfolio backend.
//
// Configuration is read from environment variables (preferred for containers)
// or from a config.yaml file in the working directory. Environment variables
// take precedence over the YAML file. A .env file, when present, is loaded
// into the process environment first.
//
// Naming convention: env vars use UPPER_SNAKE_CASE; the YAML file uses the
// same names in lower_snake_case. For example GEMINI_API_KEY becomes
// gemini_api_key in YAML.
//
// GEMINI_API_KEY is optional at startup. Without it the chat endpoint
// answers every request with a configuration error while the rest of the
// site keeps working.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config is the top-level configuration container.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Default: 8080.
	Port int

	// LogLevel controls the minimum log level. One of: debug, info, warn, error.
	// Default: info.
	LogLevel string

	Gemini GeminiConfig

	RateLimit RateLimitConfig

	// Redis holds the connection URL for the shared rate limit store.
	// Required only when RATE_LIMIT_STORE is "redis".
	Redis RedisConfig

	Stream StreamConfig

	// CircuitBreaker controls the upstream circuit breaker thresholds.
	CircuitBreaker CircuitBreakerConfig

	Content ContentConfig

	// CORSOrigins is the list of allowed CORS origins.
	// Use ["*"] to allow any origin (default). Set to specific origins in prod.
	CORSOrigins []string

	// MaxRequestBodyBytes caps inbound request bodies. Default: 256 KiB.
	MaxRequestBodyBytes int
}

// GeminiConfig configures the completion upstream.
type GeminiConfig struct {
	// APIKey is the upstream credential. Empty disables the chat endpoint.
	APIKey string

	// BaseURL overrides the API endpoint, including the version segment.
	// Useful for local mocks and development.
	BaseURL string

	// Model is the model name. Default: gemini-2.0-flash-lite.
	Model string

	// SystemPromptFile replaces the built-in assistant instructions.
	SystemPromptFile string

	// ConnectTimeout bounds the wait for the upstream's response headers.
	// Default: 15s.
	ConnectTimeout time.Duration
}

// RateLimitConfig controls the per-client chat rate limit.
type RateLimitConfig struct {
	// MaxRequests is the number of chat requests allowed per window. Default: 20.
	MaxRequests int

	// Window is the fixed window length. Default: 60s.
	Window time.Duration

	// Store selects the counter backend:
	//   "memory": in-process counters (default). Not shared across replicas.
	//   "redis" : shared counters in Redis (requires REDIS_URL).
	Store string

	// SweepSchedule is the cron spec for dropping expired in-memory windows.
	// Default: "@every 1m".
	SweepSchedule string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is a redis:// or rediss:// URL. Example: redis://localhost:6379
	URL string
}

// StreamConfig controls the streamed chat response.
type StreamConfig struct {
	// IdleTimeout aborts a stream when the upstream sends nothing for this
	// long. Default: 30s.
	IdleTimeout time.Duration
}

// CircuitBreakerConfig controls the upstream circuit breaker settings.
type CircuitBreakerConfig struct {
	// ErrorThreshold is the number of consecutive errors that trip the breaker.
	// Default: 5.
	ErrorThreshold int

	// TimeWindow is the rolling window over which errors are counted.
	// Default: 60s.
	TimeWindow time.Duration

	// HalfOpenTimeout is how long the breaker stays open before allowing a
	// single probe request. Default: 30s.
	HalfOpenTimeout time.Duration
}

// ContentConfig locates the case studies and public assets.
type ContentConfig struct {
	// Dir holds the model case-study documents. Default: content/models.
	Dir string

	// PublicDir holds static assets; certificates live in PublicDir/certificates.
	// Default: public.
	PublicDir string

	// Watch reloads case studies when files change. Default: true.
	Watch bool

	// RescanSchedule is the cron spec for a full content rescan.
	// Default: "@every 10m".
	RescanSchedule string
}

// Load reads configuration from environment variables and (optionally) from
// config.yaml in the current working directory.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),

		Gemini: GeminiConfig{
			APIKey:           v.GetString("GEMINI_API_KEY"),
			BaseURL:          v.GetString("GEMINI_BASE_URL"),
			Model:            v.GetString("GEMINI_MODEL"),
			SystemPromptFile: v.GetString("CHAT_SYSTEM_PROMPT_FILE"),
			ConnectTimeout:   v.GetDuration("UPSTREAM_CONNECT_TIMEOUT"),
		},

		RateLimit: RateLimitConfig{
			MaxRequests:   v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
			Window:        v.GetDuration("RATE_LIMIT_WINDOW"),
			Store:         strings.ToLower(v.GetString("RATE_LIMIT_STORE")),
			SweepSchedule: v.GetString("RATE_LIMIT_SWEEP_SCHEDULE"),
		},

		Redis: RedisConfig{URL: v.GetString("REDIS_URL")},

		Stream: StreamConfig{
			IdleTimeout: v.GetDuration("STREAM_IDLE_TIMEOUT"),
		},

		CircuitBreaker: CircuitBreakerConfig{
			ErrorThreshold:  v.GetInt("CB_ERROR_THRESHOLD"),
			TimeWindow:      v.GetDuration("CB_TIME_WINDOW"),
			HalfOpenTimeout: v.GetDuration("CB_HALF_OPEN_TIMEOUT"),
		},

		Content: ContentConfig{
			Dir:            v.GetString("CONTENT_DIR"),
			PublicDir:      v.GetString("PUBLIC_DIR"),
			Watch:          v.GetBool("CONTENT_WATCH"),
			RescanSchedule: v.GetString("CONTENT_RESCAN_SCHEDULE"),
		},

		CORSOrigins:         v.GetStringSlice("CORS_ORIGINS"),
		MaxRequestBodyBytes: v.GetInt("MAX_REQUEST_BODY_BYTES"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", []string{"*"})
	v.SetDefault("MAX_REQUEST_BODY_BYTES", 256<<10)

	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-lite")
	v.SetDefault("UPSTREAM_CONNECT_TIMEOUT", "15s")
	v.SetDefault("STREAM_IDLE_TIMEOUT", "30s")

	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_STORE", "memory")
	v.SetDefault("RATE_LIMIT_SWEEP_SCHEDULE", "@every 1m")

	v.SetDefault("CB_ERROR_THRESHOLD", 5)
	v.SetDefault("CB_TIME_WINDOW", "60s")
	v.SetDefault("CB_HALF_OPEN_TIMEOUT", "30s")

	v.SetDefault("CONTENT_DIR", "content/models")
	v.SetDefault("PUBLIC_DIR", "public")
	v.SetDefault("CONTENT_WATCH", true)
	v.SetDefault("CONTENT_RESCAN_SCHEDULE", "@every 10m")
}

// validate checks all semantic constraints that cannot be expressed as defaults.
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535, got %d", c.Port)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf(
			"config: invalid LOG_LEVEL %q; must be one of: debug, info, warn, error",
			c.LogLevel,
		)
	}

	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf(
			"config: invalid RATE_LIMIT_STORE %q; must be one of: memory, redis",
			c.RateLimit.Store,
		)
	}
	if c.RateLimit.Store == "redis" && c.Redis.URL == "" {
		return errors.New(
			"config: REDIS_URL is required when RATE_LIMIT_STORE=redis; " +
				"set RATE_LIMIT_STORE=memory to use in-process counters",
		)
	}
	if c.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("config: RATE_LIMIT_MAX_REQUESTS must be ≥ 1, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("config: RATE_LIMIT_WINDOW must be a positive duration")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.RateLimit.SweepSchedule); err != nil {
		return fmt.Errorf("config: invalid RATE_LIMIT_SWEEP_SCHEDULE %q: %w", c.RateLimit.SweepSchedule, err)
	}
	if _, err := parser.Parse(c.Content.RescanSchedule); err != nil {
		return fmt.Errorf("config: invalid CONTENT_RESCAN_SCHEDULE %q: %w", c.Content.RescanSchedule, err)
	}

	if c.CircuitBreaker.ErrorThreshold < 1 {
		return fmt.Errorf("config: CB_ERROR_THRESHOLD must be ≥ 1, got %d", c.CircuitBreaker.ErrorThreshold)
	}
	if c.CircuitBreaker.TimeWindow <= 0 {
		return errors.New("config: CB_TIME_WINDOW must be a positive duration")
	}
	if c.Stream.IdleTimeout < 0 || c.Gemini.ConnectTimeout < 0 {
		return errors.New("config: STREAM_IDLE_TIMEOUT and UPSTREAM_CONNECT_TIMEOUT must not be negative")
	}
	if c.MaxRequestBodyBytes < 1024 {
		return fmt.Errorf("config: MAX_REQUEST_BODY_BYTES must be ≥ 1024, got %d", c.MaxRequestBodyBytes)
	}

	return nil
}

// ChatConfigured reports whether the chat upstream has a credential.
func (c *Config) ChatConfigured() bool {
	return c.Gemini.APIKey != ""
}

// loadDotEnv populates process env vars from a .env file when present.
func loadDotEnv(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config: %s is a directory, expected a file", path)
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return nil
}
