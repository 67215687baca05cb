// Command hl-proxy runs a local caching reverse proxy in front of the
// Hyperliquid HTTP API. Point the CLI's base URL at it and redundant info
// queries stop spending the per-IP rate budget.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hlquant/hl-proxy/pkg/cache"
	"github.com/hlquant/hl-proxy/pkg/config"
	"github.com/hlquant/hl-proxy/pkg/logging"
	"github.com/hlquant/hl-proxy/pkg/proxy"
	"github.com/hlquant/hl-proxy/pkg/upstream"
)

func main() {
	cfg := config.Load()

	logger := logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize cache store")
	}

	up, err := upstream.New(cfg.UpstreamURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid upstream URL")
	}

	handler := proxy.NewHandler(store, up)
	server := proxy.NewServer(cfg.Addr(), handler)

	logger.Info().
		Str("upstream", cfg.UpstreamURL).
		Int("port", cfg.Port).
		Bool("warmup", cfg.Warmup).
		Msg("Starting hl-proxy")

	if cfg.Warmup {
		warmupCtx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout)
		handler.Warmup(warmupCtx)
		cancel()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}

	logger.Info().Msg("Proxy stopped")
}

// newStore picks the cache backend: in-memory by default, Redis when
// HL_REDIS_URL is set.
func newStore(cfg config.Config) (cache.Store, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Accept bare host:port too, like REDIS_URL=localhost:6379.
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return cache.NewRedis(client), nil
}
