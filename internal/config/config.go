// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Generator kinds and executor modes accepted by Validate. They mirror
// generator.Kind and agent.ExecutorMode without importing either package.
const (
	GeneratorMock   = "mock"
	GeneratorGemini = "gemini"
	GeneratorGrpc   = "grpc"

	ExecutorDeterministic = "deterministic"
	ExecutorModel         = "model"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	MaxRetries      int
	Generator       GeneratorConfig
	ExecutorMode    string
	PlanCache       PlanCacheConfig
	RateLimit       RateLimitConfig
	MaxRequestBody  int64
	GRPCPort        string
	ShutdownTimeout time.Duration
}

// GeneratorConfig selects and configures the text generator.
type GeneratorConfig struct {
	Kind        string
	GeminiModel string
	APIKey      string
	Addr        string
	Timeout     time.Duration
}

// PlanCacheConfig controls the LRU + SQLite plan cache.
type PlanCacheConfig struct {
	Enabled bool
	Size    int
	TTL     time.Duration
}

// RateLimitConfig bounds solve requests per client.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables without validating
// it, for callers that apply overrides first.
func FromEnv() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/stepwise.db"),
		MaxRetries:  getEnvInt("MAX_RETRIES", 2),
		Generator: GeneratorConfig{
			Kind:        strings.ToLower(getEnv("GENERATOR", GeneratorMock)),
			GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			APIKey:      getEnv("GOOGLE_API_KEY", ""),
			Addr:        getEnv("GENERATOR_ADDR", "localhost:50051"),
			Timeout:     getEnvDuration("GENERATOR_TIMEOUT", 30*time.Second),
		},
		ExecutorMode: strings.ToLower(getEnv("EXECUTOR_MODE", ExecutorDeterministic)),
		PlanCache: PlanCacheConfig{
			Enabled: getEnvBool("PLAN_CACHE_ENABLED", true),
			Size:    getEnvInt("PLAN_CACHE_SIZE", 256),
			TTL:     getEnvDuration("PLAN_CACHE_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		MaxRequestBody:  int64(getEnvInt("MAX_REQUEST_BODY", 64<<10)),
		GRPCPort:        getEnv("GRPC_PORT", ""),
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	switch c.Generator.Kind {
	case GeneratorMock:
	case GeneratorGemini:
		if c.Generator.APIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required when GENERATOR=gemini")
		}
	case GeneratorGrpc:
		if c.Generator.Addr == "" {
			return fmt.Errorf("GENERATOR_ADDR is required when GENERATOR=grpc")
		}
	default:
		return fmt.Errorf("GENERATOR must be one of mock, gemini, grpc (got %q)", c.Generator.Kind)
	}
	if c.Generator.Timeout <= 0 {
		return fmt.Errorf("GENERATOR_TIMEOUT must be > 0")
	}
	if c.ExecutorMode != ExecutorDeterministic && c.ExecutorMode != ExecutorModel {
		return fmt.Errorf("EXECUTOR_MODE must be deterministic or model (got %q)", c.ExecutorMode)
	}
	if c.PlanCache.Enabled {
		if c.PlanCache.Size <= 0 {
			return fmt.Errorf("PLAN_CACHE_SIZE must be > 0")
		}
		if c.PlanCache.TTL <= 0 {
			return fmt.Errorf("PLAN_CACHE_TTL must be > 0")
		}
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.MaxRequestBody <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origin list for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
