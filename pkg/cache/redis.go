package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

// Redis is an optional shared backend for running several proxy processes
// behind the same IP budget. Entries are JSON-encoded and expire natively,
// so no freshness bookkeeping is needed on read. The per-account reverse
// index lives in a Redis set per address.
type Redis struct {
	client *redis.Client
	stats  *Stats
}

// userIndexTTL bounds how long an idle account's reverse index survives.
// Entries themselves expire within seconds; the index only has to outlive
// them between trades.
const userIndexTTL = 24 * time.Hour

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client) *Redis {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{
		client: client,
		stats:  NewStats(),
	}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := r.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			r.stats.Miss(key.InfoType)
			CacheMisses.WithLabelValues(key.InfoType).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}

	// Redis already expired the key if the TTL elapsed; the extra check
	// only guards against clock drift between writer and reader.
	if !entry.FreshAt(time.Now()) {
		_ = r.client.Del(ctx, key.String()).Err()
		r.stats.Miss(key.InfoType)
		CacheMisses.WithLabelValues(key.InfoType).Inc()
		return nil, ErrCacheMiss
	}

	r.stats.Hit(key.InfoType)
	CacheHits.WithLabelValues(key.InfoType).Inc()
	return &entry, nil
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, key Key, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	entry := Entry{
		Body:     body,
		Category: key.Category,
		InfoType: key.InfoType,
		User:     key.User,
		StoredAt: time.Now(),
		TTL:      ttl,
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("encode cache entry: %w", err)
	}

	ks := key.String()
	pipe := r.client.Pipeline()
	pipe.Set(ctx, ks, data, ttl)
	if key.User != "" {
		pipe.SAdd(ctx, userIndexKey(key.User), ks)
		pipe.Expire(ctx, userIndexKey(key.User), userIndexTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateUser implements Store.
func (r *Redis) InvalidateUser(ctx context.Context, user string) (int, error) {
	index := userIndexKey(user)

	keys, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis smembers: %w", err)
	}

	count := 0
	if len(keys) > 0 {
		n, err := r.client.Del(ctx, keys...).Result()
		if err != nil {
			CacheErrors.WithLabelValues("invalidate").Inc()
			return 0, fmt.Errorf("redis del: %w", err)
		}
		count = int(n)
	}
	_ = r.client.Del(ctx, index).Err()

	if count > 0 {
		CacheInvalidations.WithLabelValues("user").Add(float64(count))
	}
	return count, nil
}

// InvalidateCategory implements Store.
func (r *Redis) InvalidateCategory(ctx context.Context, c policy.Category) (int, error) {
	return r.deleteByPattern(ctx, categoryPattern(c), "category")
}

// InvalidateType implements Store.
func (r *Redis) InvalidateType(ctx context.Context, infoType string) (int, error) {
	return r.deleteByPattern(ctx, typePattern(infoType), "type")
}

// Clear implements Store.
func (r *Redis) Clear(ctx context.Context) (int, error) {
	count, err := r.deleteByPattern(ctx, keyPrefix+"*", "all")
	if err != nil {
		return count, err
	}
	// Drop the reverse index sets too; they reference deleted keys.
	if _, err := r.deleteByPattern(ctx, userIndexPrefix+"*", ""); err != nil {
		return count, err
	}
	return count, nil
}

// Size implements Store.
func (r *Redis) Size(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}

// Stats implements Store.
func (r *Redis) Stats() *Stats {
	return r.stats
}

func (r *Redis) deleteByPattern(ctx context.Context, pattern, reason string) (int, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis scan: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis del: %w", err)
	}

	if reason != "" && n > 0 {
		CacheInvalidations.WithLabelValues(reason).Add(float64(n))
	}
	return int(n), nil
}
