package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

const (
	// keyPrefix namespaces all cache entries, so a shared Redis database
	// can be cleared without touching unrelated keys.
	keyPrefix = "hl:cache:"

	// userIndexPrefix namespaces the per-account reverse index sets.
	userIndexPrefix = "hl:users:"
)

// Key identifies one cached info response. Two requests that decode to the
// same canonical payload for the same account map to the same key; any
// difference in a cache-relevant parameter yields a different key.
type Key struct {
	// Category and InfoType classify the entry for scoped invalidation.
	Category policy.Category
	InfoType string

	// User is the lowercased account address for user-scoped types,
	// empty otherwise.
	User string

	// Payload is the canonical JSON encoding of the request body.
	Payload []byte
}

// String generates the deterministic key string.
// Format: hl:cache:<category>:<infoType>:<payload-hash>[:user=<address>]
//
// Example:
//
//	hl:cache:price:l2Book:9f86d081884c7d65
//	hl:cache:user-state:openOrders:2c26b46b68ffc68f:user=0xabc...
func (k Key) String() string {
	sum := sha256.Sum256(k.Payload)

	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(string(k.Category))
	b.WriteByte(':')
	b.WriteString(k.InfoType)
	b.WriteByte(':')
	b.WriteString(hex.EncodeToString(sum[:8]))
	if k.User != "" {
		b.WriteString(":user=")
		b.WriteString(k.User)
	}
	return b.String()
}

// categoryPattern matches every key of one category.
func categoryPattern(c policy.Category) string {
	return fmt.Sprintf("%s%s:*", keyPrefix, c)
}

// typePattern matches every key of one info type.
func typePattern(infoType string) string {
	c, _ := policy.CategoryOf(infoType)
	return fmt.Sprintf("%s%s:%s:*", keyPrefix, c, infoType)
}

// userIndexKey names the reverse-index set for an account.
func userIndexKey(user string) string {
	return userIndexPrefix + user
}
