package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

// healthResponse is the GET /health body.
type healthResponse struct {
	Status        string `json:"status"`
	Upstream      string `json:"upstream"`
	CacheEntries  int    `json:"cache_entries"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	UptimeHuman   string `json:"uptime_human"`
}

// handleHealth reports liveness and uptime. It never fails once the process
// accepts connections; a store error just zeroes the entry count.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Size(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Cache size unavailable")
		entries = 0
	}

	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Upstream:      h.upstream.BaseURL(),
		CacheEntries:  entries,
		UptimeSeconds: int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
	})
}

// statsResponse is the GET /cache/stats body.
type statsResponse struct {
	Entries     int                    `json:"entries"`
	TotalHits   int64                  `json:"total_hits"`
	TotalMisses int64                  `json:"total_misses"`
	HitRate     string                 `json:"hit_rate"`
	ByCategory  map[string]counterPair `json:"by_category"`
	ByType      map[string]counterPair `json:"by_type"`
}

type counterPair struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// handleStats returns a snapshot of the hit/miss counters. Read-only.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Size(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Cache size unavailable")
	}

	snap := h.store.Stats().Snapshot()

	resp := statsResponse{
		Entries:     entries,
		TotalHits:   snap.TotalHits,
		TotalMisses: snap.TotalMisses,
		HitRate:     fmt.Sprintf("%.1f%%", snap.HitRate()*100),
		ByCategory:  make(map[string]counterPair, len(snap.ByCategory)),
		ByType:      make(map[string]counterPair, len(snap.ByType)),
	}
	for cat, c := range snap.ByCategory {
		resp.ByCategory[string(cat)] = counterPair{Hits: c.Hits, Misses: c.Misses}
	}
	for t, c := range snap.ByType {
		resp.ByType[t] = counterPair{Hits: c.Hits, Misses: c.Misses}
	}

	writeJSON(w, http.StatusOK, resp)
}

// clearRequest is the optional POST /cache/clear body. Type may name a
// category ("price") or a concrete info type ("allMids"). User scopes the
// clear to one account. An absent or empty body clears everything.
type clearRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type clearResponse struct {
	Cleared int `json:"cleared"`
	Filter  any `json:"filter"`
}

// handleClear invalidates cache entries. Stats counters are never reset.
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		// Malformed bodies fall through to a full clear, matching the
		// "absent body clears everything" contract.
		_ = json.Unmarshal(body, &req)
	}

	ctx := r.Context()
	var (
		count  int
		err    error
		filter any = "all"
	)

	switch {
	case req.Type != "":
		if policy.IsCategory(req.Type) {
			count, err = h.store.InvalidateCategory(ctx, policy.Category(req.Type))
		} else {
			count, err = h.store.InvalidateType(ctx, req.Type)
		}
		filter = map[string]string{"type": req.Type}
	case req.User != "":
		count, err = h.store.InvalidateUser(ctx, strings.ToLower(req.User))
		filter = map[string]string{"user": req.User}
	default:
		count, err = h.store.Clear(ctx)
	}

	if err != nil {
		h.logger.Error().Err(err).Msg("Cache clear failed")
		writeJSONError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}

	h.logger.Info().Int("cleared", count).Interface("filter", filter).Msg("Cache cleared")
	writeJSON(w, http.StatusOK, clearResponse{Cleared: count, Filter: filter})
}

func formatUptime(d time.Duration) string {
	secs := int64(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}
