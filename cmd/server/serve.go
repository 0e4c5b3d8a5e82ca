package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/jrsteele09/go-spotify-mcp/gateway"
	"github.com/jrsteele09/go-spotify-mcp/internal/config"
	"github.com/jrsteele09/go-spotify-mcp/internal/metrics"
	"github.com/jrsteele09/go-spotify-mcp/server"
	"github.com/jrsteele09/go-spotify-mcp/session"
	"github.com/jrsteele09/go-spotify-mcp/spotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Authorize if needed, then serve the Spotify tools over MCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := config.New()
			displayAppname(c.GetAppName())
			if err := run(ctx, c); err != nil {
				return err
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}
}

func run(ctx context.Context, c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	if err := config.Validate(c); err != nil {
		return err
	}

	m := metrics.New()
	hc := newHTTPClient(c)
	manager := newSessionManager(c, session.NewFileRepo(c.GetTokenCachePath()), hc, m)
	if _, err := manager.Bootstrap(ctx); err != nil {
		return fmt.Errorf("[main run] bootstrap session: %w", err)
	}

	upstream := spotify.New(c.GetAPIBaseURL(), c.GetRequestTimeout(), spotify.WithHTTPClient(hc))
	// play_song makes two upstream calls within one dispatch.
	gw := gateway.New(manager, upstream,
		gateway.WithMetrics(m),
		gateway.WithTimeout(2*c.GetRequestTimeout()),
	)
	if err := manager.RequireScopes(gw.RequiredScopes()); err != nil {
		return fmt.Errorf("[main run] %w (re-run the login command)", err)
	}
	if sess, ok := manager.Snapshot(); ok {
		log.Info().Strs("scopes", sess.GrantedScopes).Time("expires_at", sess.ExpiresAt).Msg("Spotify session ready")
	}

	srv := server.New(c, gw, server.WithMetrics(m), server.WithHealthCheck(manager.Healthy))
	return srv.Run(ctx)
}

func newSessionManager(c config.Config, repo session.Repo, hc *http.Client, m *metrics.Metrics) *session.Manager {
	return session.NewManager(session.NewOAuthConfig(c), session.Options{
		Repo:          repo,
		Authorizer:    &session.CallbackAuthorizer{Timeout: c.GetConsentTimeout()},
		RefreshLeeway: c.GetRefreshLeeway(),
		HTTPClient:    hc,
		Metrics:       m,
	})
}

// newHTTPClient is shared by the token endpoint and the Web API calls.
func newHTTPClient(c config.Config) *http.Client {
	return &http.Client{Timeout: c.GetRequestTimeout()}
}
