package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	RouteMCP     = "/mcp"
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func (s *Server) initRoutes() {
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	s.RegisterRouteHandler(RouteMCP, ChainMiddleware(streamable.ServeHTTP, s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.StandardMiddleware()...))
	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(s.metrics.Handler().ServeHTTP, s.StandardMiddleware()...))
	}
	s.logRoutes()
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler reports 503 once the Spotify session can no longer produce
// tokens.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, resp := http.StatusOK, healthResponse{Status: "ok"}
		if s.health != nil {
			if err := s.health(); err != nil {
				status, resp = http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Str("endpoint", RouteMCP).Msg("Serving MCP over streamable HTTP")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("[Server listenAndServe] %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("[Server shutdown] %w", err)
	}
	return nil
}
