// Package testutil provides a configurable mock exchange API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockExchange is a fake Hyperliquid API. By default it answers /info with a
// per-type sequence number (so tests can prove whether a response came from
// the cache or from a fresh fetch) and /exchange with {"status":"ok"}.
type MockExchange struct {
	server *httptest.Server

	mu             sync.Mutex
	handlers       map[string]http.HandlerFunc
	infoBodies     map[string]string
	exchangeBody   string
	exchangeStatus int

	requestCount  int
	infoCounts    map[string]int
	exchangeCount int
	lastHeader    http.Header
}

// NewMockExchange starts the mock server.
func NewMockExchange() *MockExchange {
	m := &MockExchange{
		handlers:       make(map[string]http.HandlerFunc),
		infoBodies:     make(map[string]string),
		infoCounts:     make(map[string]int),
		exchangeBody:   `{"status":"ok"}`,
		exchangeStatus: http.StatusOK,
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the mock server base URL.
func (m *MockExchange) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockExchange) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and restores the default handlers.
func (m *MockExchange) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.exchangeCount = 0
	m.infoCounts = make(map[string]int)
	m.lastHeader = nil
	m.handlers = make(map[string]http.HandlerFunc)
	m.infoBodies = make(map[string]string)
	m.exchangeBody = `{"status":"ok"}`
	m.exchangeStatus = http.StatusOK
}

// SetInfoBody fixes the /info response body for one info type.
func (m *MockExchange) SetInfoBody(infoType, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoBodies[infoType] = body
}

// SetExchangeResponse configures the /exchange status code and body.
func (m *MockExchange) SetExchangeResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeStatus = status
	m.exchangeBody = body
}

// SetHandler installs a custom handler for an arbitrary path.
func (m *MockExchange) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// RequestCount returns the total number of requests received.
func (m *MockExchange) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// InfoCount returns the number of /info requests for one type.
func (m *MockExchange) InfoCount(infoType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infoCounts[infoType]
}

// ExchangeCount returns the number of /exchange requests received.
func (m *MockExchange) ExchangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeCount
}

// LastHeader returns the headers of the most recent request.
func (m *MockExchange) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

func (m *MockExchange) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.lastHeader = r.Header.Clone()
	custom, hasCustom := m.handlers[r.URL.Path]
	m.mu.Unlock()

	if hasCustom {
		custom(w, r)
		return
	}

	switch r.URL.Path {
	case "/info":
		m.serveInfo(w, r)
	case "/exchange":
		m.serveExchange(w)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}
}

func (m *MockExchange) serveInfo(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid json"}`)
		return
	}

	m.mu.Lock()
	m.infoCounts[payload.Type]++
	seq := m.infoCounts[payload.Type]
	body, fixed := m.infoBodies[payload.Type]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if fixed {
		fmt.Fprint(w, body)
		return
	}
	fmt.Fprintf(w, `{"type":%q,"seq":%d}`, payload.Type, seq)
}

func (m *MockExchange) serveExchange(w http.ResponseWriter) {
	m.mu.Lock()
	m.exchangeCount++
	status, body := m.exchangeStatus, m.exchangeBody
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}
