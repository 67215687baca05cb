package proxy

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hlquant/hl-proxy/pkg/logging"
)

// Server wires the proxy core, admin surface, and middleware into one HTTP
// server.
type Server struct {
	handler    *Handler
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer creates the HTTP server for the given proxy core.
func NewServer(addr string, handler *Handler) *Server {
	logger := logging.NewLogger("server")

	// Admin paths claim the full path, not a method pattern: a wrong method
	// must get 405 here, never leak to the real exchange.
	mux := http.NewServeMux()
	mux.Handle("/health", methodOnly(http.MethodGet, http.HandlerFunc(handler.handleHealth)))
	mux.Handle("/cache/stats", methodOnly(http.MethodGet, http.HandlerFunc(handler.handleStats)))
	mux.Handle("/cache/clear", methodOnly(http.MethodPost, http.HandlerFunc(handler.handleClear)))
	mux.Handle("/metrics", methodOnly(http.MethodGet, promhttp.Handler()))
	mux.HandleFunc("/", handler.handleProxy)

	chain := requestID(accessLog(logger)(mux))

	return &Server{
		handler: handler,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           chain,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// methodOnly rejects every method but the given one with 405.
func methodOnly(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the full middleware-wrapped handler (for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Proxy listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Proxy shutting down")
	return s.httpServer.Shutdown(ctx)
}
