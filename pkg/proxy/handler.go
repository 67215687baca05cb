// Package proxy implements the caching proxy core: request classification,
// cache lookups, upstream forwarding, post-trade invalidation, and the
// admin/health surface.
package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hlquant/hl-proxy/pkg/cache"
	"github.com/hlquant/hl-proxy/pkg/classify"
	"github.com/hlquant/hl-proxy/pkg/logging"
	"github.com/hlquant/hl-proxy/pkg/policy"
	"github.com/hlquant/hl-proxy/pkg/upstream"
)

// Cache annotation headers. Every cacheable response carries both; mutating
// and passthrough responses carry neither.
const (
	CacheStatusHeader = "X-Cache"
	CacheTypeHeader   = "X-Cache-Type"

	CacheHit   = "HIT"
	CacheMiss  = "MISS"
	CacheError = "ERROR"
)

// Handler orchestrates one request: classify, check the store, serve or
// fetch, store, invalidate on mutation.
type Handler struct {
	store     cache.Store
	upstream  *upstream.Client
	logger    zerolog.Logger
	startedAt time.Time
}

// NewHandler creates the proxy core around an injected store and upstream
// client.
func NewHandler(store cache.Store, up *upstream.Client) *Handler {
	return &Handler{
		store:     store,
		upstream:  up,
		logger:    logging.NewLogger("proxy"),
		startedAt: time.Now(),
	}
}

// handleProxy serves every non-admin path.
func (h *Handler) handleProxy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res := classify.Request(r.Method, r.URL.Path, body, r.Header)
	switch res.Kind {
	case classify.KindMutating:
		h.serveMutating(w, r, body, res)
	case classify.KindCacheable:
		h.serveCacheable(w, r, body, res)
	default:
		h.servePassthrough(w, r, body)
	}
}

// serveCacheable is the metadata/price/user-state path: serve fresh entries
// from the store, otherwise fetch, store on success, and annotate HIT/MISS.
func (h *Handler) serveCacheable(w http.ResponseWriter, r *http.Request, body []byte, res classify.Result) {
	ctx := r.Context()
	key := cache.Key{
		Category: res.Category,
		InfoType: res.InfoType,
		User:     res.User,
		Payload:  res.Payload,
	}

	entry, err := h.store.Get(ctx, key)
	if err == nil {
		h.logger.Debug().
			Str("info_type", res.InfoType).
			Str("category", string(res.Category)).
			Msg("Cache hit")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(CacheStatusHeader, CacheHit)
		w.Header().Set(CacheTypeHeader, res.InfoType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(entry.Body)
		return
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Store failures degrade to a miss; the proxy keeps relaying.
		h.logger.Warn().Err(err).Str("info_type", res.InfoType).Msg("Cache read failed, treating as miss")
	}

	resp, err := h.upstream.Forward(ctx, r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
	if err != nil {
		w.Header().Set(CacheStatusHeader, CacheError)
		writeJSONError(w, http.StatusBadGateway, "upstream unreachable")
		return
	}

	if resp.OK() {
		if err := h.store.Put(ctx, key, resp.Body, res.TTL); err != nil {
			h.logger.Warn().Err(err).Str("info_type", res.InfoType).Msg("Cache write failed, skipping")
		} else {
			h.logger.Debug().
				Str("info_type", res.InfoType).
				Dur("ttl", res.TTL).
				Msg("Cached upstream response")
		}
	}

	annotate := func(header http.Header) {
		header.Set(CacheStatusHeader, CacheMiss)
		header.Set(CacheTypeHeader, res.InfoType)
	}
	writeUpstream(w, resp, annotate)
}

// serveMutating always forwards. A confirmed mutation invalidates the acting
// account's entire user-state slice; when the account is unknown, every
// user-state entry goes, so a stale balance can never survive a trade.
func (h *Handler) serveMutating(w http.ResponseWriter, r *http.Request, body []byte, res classify.Result) {
	ctx := r.Context()

	resp, err := h.upstream.Forward(ctx, r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "upstream unreachable")
		return
	}

	if resp.OK() && mutationSucceeded(resp.Body) {
		if res.User != "" {
			count, err := h.store.InvalidateUser(ctx, res.User)
			if err != nil {
				h.logger.Warn().Err(err).Str("user", res.User).Msg("Post-trade invalidation failed")
			} else if count > 0 {
				h.logger.Info().Int("count", count).Str("user", res.User).Msg("Invalidated account cache after trade")
			}
		} else {
			count, err := h.store.InvalidateCategory(ctx, policy.CategoryUserState)
			if err != nil {
				h.logger.Warn().Err(err).Msg("Post-trade invalidation failed")
			} else if count > 0 {
				h.logger.Info().Int("count", count).Msg("Invalidated all user-state entries after trade")
			}
		}
	}

	writeUpstream(w, resp, nil)
}

// servePassthrough forwards verbatim with no caching and no annotation.
func (h *Handler) servePassthrough(w http.ResponseWriter, r *http.Request, body []byte) {
	resp, err := h.upstream.Forward(r.Context(), r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "upstream unreachable")
		return
	}
	writeUpstream(w, resp, nil)
}

// mutationSucceeded reports whether an exchange response confirms the
// action. Hyperliquid answers 200 with {"status":"ok"} on success and 200
// with an error status string on rejection, so the HTTP code alone is not
// enough.
func mutationSucceeded(body []byte) bool {
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false
	}
	return resp.Status == "ok"
}

// writeUpstream relays an upstream response unmodified, plus optional cache
// annotation headers.
func writeUpstream(w http.ResponseWriter, resp *upstream.Response, annotate func(http.Header)) {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if annotate != nil {
		annotate(w.Header())
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
