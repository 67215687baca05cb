// Package integration exercises the proxy end to end over real HTTP: a
// listening proxy server in front of a mock exchange, with both cache
// backends.
package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hlquant/hl-proxy/internal/testutil"
	"github.com/hlquant/hl-proxy/pkg/cache"
	"github.com/hlquant/hl-proxy/pkg/proxy"
	"github.com/hlquant/hl-proxy/pkg/upstream"
)

// startProxy runs the full proxy stack on a real listener and returns its
// base URL.
func startProxy(t *testing.T, store cache.Store) (*testutil.MockExchange, string) {
	t.Helper()

	mock := testutil.NewMockExchange()
	t.Cleanup(mock.Close)

	up, err := upstream.New(mock.URL(), 5*time.Second)
	if err != nil {
		t.Fatalf("upstream.New failed: %v", err)
	}

	server := httptest.NewServer(proxy.NewServer(":0", proxy.NewHandler(store, up)).Handler())
	t.Cleanup(server.Close)

	return mock, server.URL
}

func postInfo(t *testing.T, baseURL, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(baseURL+"/info", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /info failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestProxyLifecycle_Memory(t *testing.T) {
	mock, baseURL := startProxy(t, cache.NewMemory())
	runLifecycle(t, mock, baseURL)
}

func TestProxyLifecycle_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mock, baseURL := startProxy(t, cache.NewRedis(client))
	runLifecycle(t, mock, baseURL)
}

// runLifecycle walks one agent session: health check, cached reads, a trade,
// and the invalidation it causes.
func runLifecycle(t *testing.T, mock *testutil.MockExchange, baseURL string) {
	// Health comes up before any traffic.
	health, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("/health = %d, want 200", health.StatusCode)
	}

	// Metadata read: first misses, second is served locally.
	first := postInfo(t, baseURL, `{"type":"meta"}`)
	if got := first.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("first meta = %q, want MISS", got)
	}
	firstBody, _ := io.ReadAll(first.Body)

	second := postInfo(t, baseURL, `{"type":"meta"}`)
	if got := second.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("second meta = %q, want HIT", got)
	}
	secondBody, _ := io.ReadAll(second.Body)
	if string(firstBody) != string(secondBody) {
		t.Errorf("hit body %s differs from stored %s", secondBody, firstBody)
	}
	if n := mock.InfoCount("meta"); n != 1 {
		t.Errorf("upstream saw %d meta requests, want 1", n)
	}

	// Account state is cached per user.
	postInfo(t, baseURL, `{"type":"openOrders","user":"0xAbC"}`)
	if got := postInfo(t, baseURL, `{"type":"openOrders","user":"0xabc"}`).Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("case-folded user read = %q, want HIT", got)
	}

	// The trade goes upstream and drops that account's state.
	trade, err := http.Post(baseURL+"/exchange", "application/json",
		strings.NewReader(`{"action":{"type":"order"},"user":"0xabc"}`))
	if err != nil {
		t.Fatalf("POST /exchange failed: %v", err)
	}
	defer trade.Body.Close()
	if trade.StatusCode != http.StatusOK {
		t.Fatalf("/exchange = %d, want 200", trade.StatusCode)
	}
	if n := mock.ExchangeCount(); n != 1 {
		t.Errorf("upstream saw %d exchange requests, want 1", n)
	}

	if got := postInfo(t, baseURL, `{"type":"openOrders","user":"0xabc"}`).Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("post-trade orders = %q, want MISS", got)
	}
	// Metadata is untouched by the trade.
	if got := postInfo(t, baseURL, `{"type":"meta"}`).Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("post-trade meta = %q, want HIT", got)
	}

	// Admin clear empties the cache.
	clear, err := http.Post(baseURL+"/cache/clear", "application/json", strings.NewReader(""))
	if err != nil {
		t.Fatalf("POST /cache/clear failed: %v", err)
	}
	defer clear.Body.Close()
	if clear.StatusCode != http.StatusOK {
		t.Fatalf("/cache/clear = %d, want 200", clear.StatusCode)
	}
	if got := postInfo(t, baseURL, `{"type":"meta"}`).Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("meta after clear = %q, want MISS", got)
	}
}

func TestProxyConcurrentClients(t *testing.T) {
	mock, baseURL := startProxy(t, cache.NewMemory())

	const clients = 8
	errCh := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func() {
			resp, err := http.Post(baseURL+"/info", "application/json",
				strings.NewReader(`{"type":"allMids"}`))
			if err == nil {
				resp.Body.Close()
			}
			errCh <- err
		}()
	}
	for i := 0; i < clients; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent request failed: %v", err)
		}
	}

	// Every client gets an answer; the miss window allows a few upstream
	// fetches but never one per client.
	if n := mock.InfoCount("allMids"); n == 0 || n > clients {
		t.Errorf("upstream saw %d allMids requests for %d clients", n, clients)
	}
}

func TestProxyServerShutdown(t *testing.T) {
	mock := testutil.NewMockExchange()
	t.Cleanup(mock.Close)

	up, err := upstream.New(mock.URL(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	server := proxy.NewServer("127.0.0.1:0", proxy.NewHandler(cache.NewMemory(), up))

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v after graceful shutdown, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Start did not return after shutdown")
	}
}
