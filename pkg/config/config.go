// Package config loads the proxy configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for a local proxy in front of the Hyperliquid mainnet API.
const (
	DefaultUpstreamURL     = "https://api.hyperliquid.xyz"
	DefaultPort            = 18731
	DefaultUpstreamTimeout = 30 * time.Second
)

// Config holds the complete proxy configuration.
type Config struct {
	// UpstreamURL is the base URL of the real exchange API.
	UpstreamURL string

	// Port is the local listening port.
	Port int

	// Warmup pre-populates the cache with metadata before serving.
	Warmup bool

	// RedisURL selects the shared Redis cache backend when non-empty;
	// empty means the default in-memory store.
	RedisURL string

	// UpstreamTimeout bounds a single upstream request.
	UpstreamTimeout time.Duration

	// LogLevel and LogPretty configure the logger.
	LogLevel  string
	LogPretty bool
}

// Load creates a Config from environment variables.
func Load() Config {
	return Config{
		UpstreamURL:     getEnv("HL_UPSTREAM_URL", DefaultUpstreamURL),
		Port:            getEnvInt("HL_PROXY_PORT", DefaultPort),
		Warmup:          getEnvBool("HL_CACHE_WARMUP", true),
		RedisURL:        getEnv("HL_REDIS_URL", ""),
		UpstreamTimeout: getEnvDuration("HL_UPSTREAM_TIMEOUT", DefaultUpstreamTimeout),
		LogLevel:        getEnv("HL_LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("HL_LOG_PRETTY", false),
	}
}

// Addr returns the listen address for the configured port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
