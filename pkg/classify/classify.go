// Package classify maps inbound requests to a caching decision. It is a pure
// function of the request shape: no I/O, no shared state.
package classify

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

// Kind is the coarse routing decision for a request.
type Kind int

const (
	// KindPassthrough marks requests the proxy forwards verbatim without
	// caching: unknown paths, unknown info types, malformed bodies.
	KindPassthrough Kind = iota

	// KindMutating marks exchange actions (orders, cancels, transfers,
	// leverage changes). Never cached, always forwarded; a successful
	// response invalidates the acting account's cached state.
	KindMutating

	// KindCacheable marks recognized info queries served via the cache.
	KindCacheable
)

// AddressHeader carries the acting account address when the payload itself
// does not name one. The CLI sets it on signed exchange requests.
const AddressHeader = "X-HL-Address"

// Result describes how the proxy must handle one request.
type Result struct {
	Kind Kind

	// InfoType is the Hyperliquid info query type (e.g. "allMids").
	// Empty unless Kind is KindCacheable.
	InfoType string

	// Category and TTL come from the policy table.
	Category policy.Category
	TTL      time.Duration

	// User is the acting account address, lowercased. Set for user-scoped
	// info queries and for mutating requests when it can be determined.
	User string

	// Payload is the canonical (key-sorted, compact) JSON encoding of the
	// request body. Two requests that decode to the same document yield
	// byte-identical payloads. Set only when Kind is KindCacheable.
	Payload []byte
}

// Request classifies an inbound request from its method, path, body and
// headers. It never fails: anything it does not recognize degrades to
// KindPassthrough.
func Request(method, path string, body []byte, header http.Header) Result {
	if method != http.MethodPost {
		return Result{Kind: KindPassthrough}
	}

	switch strings.TrimSuffix(path, "/") {
	case "/exchange":
		return Result{
			Kind: KindMutating,
			User: extractUser(decodeObject(body), header),
		}
	case "/info":
		return classifyInfo(body, header)
	default:
		return Result{Kind: KindPassthrough}
	}
}

func classifyInfo(body []byte, header http.Header) Result {
	payload := decodeObject(body)
	if payload == nil {
		return Result{Kind: KindPassthrough}
	}

	infoType, _ := payload["type"].(string)
	category, ok := policy.CategoryOf(infoType)
	if !ok {
		return Result{Kind: KindPassthrough}
	}

	// Fold address fields before encoding so case-variant addresses hash to
	// the same key.
	for _, field := range []string{"user", "address"} {
		if v, ok := payload[field].(string); ok {
			payload[field] = strings.ToLower(v)
		}
	}

	canonical, err := json.Marshal(payload)
	if err != nil {
		return Result{Kind: KindPassthrough}
	}

	res := Result{
		Kind:     KindCacheable,
		InfoType: infoType,
		Category: category,
		TTL:      policy.TTLOf(infoType),
		Payload:  canonical,
	}
	if policy.IsUserScoped(infoType) {
		res.User = extractUser(payload, header)
	}
	return res
}

// decodeObject parses body as a JSON object. Returns nil for anything else.
func decodeObject(body []byte) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}

// extractUser pulls the acting account address from the payload's "user" or
// "address" field, falling back to the AddressHeader. Addresses are
// lowercased so 0xABC... and 0xabc... share cache entries.
func extractUser(payload map[string]any, header http.Header) string {
	for _, field := range []string{"user", "address"} {
		if v, ok := payload[field].(string); ok && v != "" {
			return strings.ToLower(v)
		}
	}
	return strings.ToLower(header.Get(AddressHeader))
}
