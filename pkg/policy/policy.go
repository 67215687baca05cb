// Package policy defines the freshness policy for cached Hyperliquid info
// responses: the category taxonomy, the per-info-type TTL table, and the set
// of info types that are scoped to a single account.
package policy

import "time"

// Category tags a cacheable info type by how its data changes over time.
type Category string

const (
	// CategoryMetadata covers data that changes only on protocol-wide
	// schedule (contract specs, available markets).
	CategoryMetadata Category = "metadata"

	// CategoryPrice covers live tradable price and quote data.
	CategoryPrice Category = "price"

	// CategoryUserState covers a specific account's balances, positions,
	// orders and fills. Entries are additionally keyed by account address.
	CategoryUserState Category = "user-state"
)

// Default TTL per category. Per-type overrides in ttlOverrides take
// precedence; these apply to any type of the category without one.
var categoryTTLs = map[Category]time.Duration{
	CategoryMetadata:  300 * time.Second,
	CategoryPrice:     5 * time.Second,
	CategoryUserState: 2 * time.Second,
}

// categories maps every recognized info type to its category. Unknown types
// are not cached at all; the proxy degrades to passthrough for them.
var categories = map[string]Category{
	// Heavy metadata, changes rarely
	"meta":               CategoryMetadata,
	"spotMeta":           CategoryMetadata,
	"perpDexs":           CategoryMetadata,
	"userAbstraction":    CategoryMetadata,
	"userDexAbstraction": CategoryMetadata,

	// Market data, needs freshness
	"allMids":              CategoryPrice,
	"l2Book":               CategoryPrice,
	"metaAndAssetCtxs":     CategoryPrice,
	"spotMetaAndAssetCtxs": CategoryPrice,
	"fundingHistory":       CategoryPrice,
	"candleSnapshot":       CategoryPrice,
	"recentTrades":         CategoryPrice,

	// Account state, changes after trades
	"clearinghouseState":     CategoryUserState,
	"spotClearinghouseState": CategoryUserState,
	"openOrders":             CategoryUserState,
	"frontendOpenOrders":     CategoryUserState,
	"userFills":              CategoryUserState,
	"userFillsByTime":        CategoryUserState,
}

// ttlOverrides holds per-type TTLs where the category default is wrong for a
// specific type (aggregated views tolerate more staleness than raw quotes,
// fill history more than open positions).
var ttlOverrides = map[string]time.Duration{
	"l2Book":               3 * time.Second,
	"metaAndAssetCtxs":     10 * time.Second,
	"spotMetaAndAssetCtxs": 10 * time.Second,
	"fundingHistory":       30 * time.Second,
	"candleSnapshot":       10 * time.Second,
	"userFills":            5 * time.Second,
	"userFillsByTime":      5 * time.Second,
}

// CategoryOf returns the category for an info type. The second return value
// is false for unrecognized types.
func CategoryOf(infoType string) (Category, bool) {
	c, ok := categories[infoType]
	return c, ok
}

// TTLOf returns the freshness window for an info type. It returns 0 for
// unrecognized types, which must never be cached.
func TTLOf(infoType string) time.Duration {
	if ttl, ok := ttlOverrides[infoType]; ok {
		return ttl
	}
	c, ok := categories[infoType]
	if !ok {
		return 0
	}
	return categoryTTLs[c]
}

// TTLOfCategory returns the default freshness window for a category.
func TTLOfCategory(c Category) time.Duration {
	return categoryTTLs[c]
}

// IsUserScoped reports whether entries of the given info type belong to a
// single account and must be invalidated after that account trades.
func IsUserScoped(infoType string) bool {
	return categories[infoType] == CategoryUserState
}

// IsCategory reports whether s names one of the known categories.
func IsCategory(s string) bool {
	switch Category(s) {
	case CategoryMetadata, CategoryPrice, CategoryUserState:
		return true
	}
	return false
}

// Types returns all recognized info types of a category.
func Types(c Category) []string {
	var out []string
	for t, tc := range categories {
		if tc == c {
			out = append(out, t)
		}
	}
	return out
}
