package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Authorizer obtains a fresh token through user consent.
type Authorizer interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// CallbackAuthorizer runs the authorization code flow with PKCE. It serves the
// redirect URI on a local listener and waits for Spotify to redirect the
// user's browser back with the code.
type CallbackAuthorizer struct {
	// Timeout bounds the wait for the user to complete consent.
	Timeout time.Duration
	// OpenURL presents the consent URL to the user. Defaults to logging it.
	OpenURL func(authURL string)
	// Listen opens the callback listener. Defaults to net.Listen on the
	// redirect URI's host.
	Listen func(addr string) (net.Listener, error)
}

var _ Authorizer = (*CallbackAuthorizer)(nil)

type callbackResult struct {
	code string
	err  error
}

func (a *CallbackAuthorizer) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("[session Authorize] invalid redirect URI %q", cfg.RedirectURL)
	}

	listen := a.Listen
	if listen == nil {
		listen = func(addr string) (net.Listener, error) { return net.Listen("tcp", addr) }
	}
	ln, err := listen(listenAddr(redirect))
	if err != nil {
		return nil, fmt.Errorf("[session Authorize] listen for callback: %w", err)
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	results := make(chan callbackResult, 1)

	path := redirect.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("Consent callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	openURL := a.OpenURL
	if openURL == nil {
		openURL = func(u string) {
			log.Info().Str("url", u).Msg("Open this URL in a browser to authorize Spotify access")
		}
	}
	go openURL(authURL)

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("[session Authorize] waiting for consent: %w", waitCtx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("[session Authorize] token exchange: %w", err)
	}
	return tok, nil
}

// callbackHandler accepts the first redirect that carries the expected state.
func callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errorParam := r.FormValue("error"); errorParam != "" {
			http.Error(w, "Authorization failed: "+errorParam, http.StatusBadRequest)
			deliver(results, callbackResult{err: fmt.Errorf("[session Authorize] consent denied: %s", errorParam)})
			return
		}

		code := r.FormValue("code")
		if code == "" || r.FormValue("state") == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}
		if r.FormValue("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window.")
		deliver(results, callbackResult{code: code})
	}
}

func deliver(results chan<- callbackResult, res callbackResult) {
	select {
	case results <- res:
	default:
	}
}

func listenAddr(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}
