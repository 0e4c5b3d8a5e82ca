package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-spotify-mcp/internal/config"
	"github.com/jrsteele09/go-spotify-mcp/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run interactive Spotify consent and refresh the token cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := config.New()
			if err := config.Validate(c); err != nil {
				return err
			}

			repo := session.NewFileRepo(c.GetTokenCachePath())
			if reset {
				if err := repo.Delete(); err != nil {
					return fmt.Errorf("[main login] reset token cache: %w", err)
				}
				log.Info().Str("cache", repo.Path()).Msg("Token cache removed")
			}

			sess, err := newSessionManager(c, repo, newHTTPClient(c), nil).Login(ctx)
			if err != nil {
				return fmt.Errorf("[main login] %w", err)
			}
			log.Info().
				Str("cache", repo.Path()).
				Strs("scopes", sess.GrantedScopes).
				Time("expires_at", sess.ExpiresAt).
				Msg("Spotify session saved")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete the cached token before running consent")
	return cmd
}
