package proxy

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/hlquant/hl-proxy/pkg/cache"
	"github.com/hlquant/hl-proxy/pkg/classify"
)

// warmupTypes are the metadata reads every cold-started CLI session issues
// first. Pre-fetching them moves the cost off the first real request.
var warmupTypes = []string{"meta", "spotMeta", "perpDexs", "allMids"}

// warmupConcurrency bounds parallel warmup fetches so startup does not spend
// rate budget in a burst.
const warmupConcurrency = 2

// Warmup pre-populates the cache through the same fetch-and-store path a
// cache miss takes. Failures are logged and non-fatal: the proxy starts
// regardless and the first real request populates the cache on demand.
func (h *Handler) Warmup(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)

	for _, infoType := range warmupTypes {
		infoType := infoType
		g.Go(func() error {
			if err := h.warmOne(ctx, infoType); err != nil {
				h.logger.Warn().Err(err).Str("info_type", infoType).Msg("Warmup fetch failed")
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (h *Handler) warmOne(ctx context.Context, infoType string) error {
	payload := []byte(fmt.Sprintf(`{"type":%q}`, infoType))

	res := classify.Request(http.MethodPost, "/info", payload, nil)
	if res.Kind != classify.KindCacheable {
		return fmt.Errorf("info type %q is not cacheable", infoType)
	}

	resp, err := h.upstream.PostJSON(ctx, "/info", res.Payload)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	key := cache.Key{
		Category: res.Category,
		InfoType: res.InfoType,
		User:     res.User,
		Payload:  res.Payload,
	}
	if err := h.store.Put(ctx, key, resp.Body, res.TTL); err != nil {
		return err
	}

	h.logger.Info().
		Str("info_type", infoType).
		Dur("ttl", res.TTL).
		Msg("Warmed cache")
	return nil
}
