package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.UpstreamURL != DefaultUpstreamURL {
		t.Errorf("UpstreamURL = %q, want %q", cfg.UpstreamURL, DefaultUpstreamURL)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if !cfg.Warmup {
		t.Error("Warmup = false, want true by default")
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
	if cfg.UpstreamTimeout != DefaultUpstreamTimeout {
		t.Errorf("UpstreamTimeout = %v, want %v", cfg.UpstreamTimeout, DefaultUpstreamTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HL_UPSTREAM_URL", "http://localhost:9000")
	t.Setenv("HL_PROXY_PORT", "9001")
	t.Setenv("HL_CACHE_WARMUP", "false")
	t.Setenv("HL_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("HL_UPSTREAM_TIMEOUT", "10s")
	t.Setenv("HL_LOG_LEVEL", "debug")
	t.Setenv("HL_LOG_PRETTY", "true")

	cfg := Load()

	if cfg.UpstreamURL != "http://localhost:9000" {
		t.Errorf("UpstreamURL = %q", cfg.UpstreamURL)
	}
	if cfg.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Port)
	}
	if cfg.Warmup {
		t.Error("Warmup = true, want false")
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 10s", cfg.UpstreamTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty = false, want true")
	}
}

// Malformed values fall back to defaults instead of failing startup.
func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("HL_PROXY_PORT", "not-a-port")
	t.Setenv("HL_CACHE_WARMUP", "maybe")
	t.Setenv("HL_UPSTREAM_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
	}
	if !cfg.Warmup {
		t.Error("Warmup = false, want default true")
	}
	if cfg.UpstreamTimeout != DefaultUpstreamTimeout {
		t.Errorf("UpstreamTimeout = %v, want default", cfg.UpstreamTimeout)
	}
}

func TestAddr(t *testing.T) {
	cfg := Config{Port: 18731}
	if got := cfg.Addr(); got != ":18731" {
		t.Errorf("Addr() = %q, want :18731", got)
	}
}
