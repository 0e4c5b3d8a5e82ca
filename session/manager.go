package session

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-spotify-mcp/internal/config"
	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
	"github.com/jrsteele09/go-spotify-mcp/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"
	"golang.org/x/sync/singleflight"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var errNoRefreshToken = errors.New("no refresh token")

const (
	refreshKey            = "refresh"
	defaultRefreshTimeout = 15 * time.Second
)

// Options configures a Manager. Only Repo is required.
type Options struct {
	Repo       Repo
	Authorizer Authorizer
	// RefreshLeeway treats a token as stale this long before it expires.
	RefreshLeeway time.Duration
	// RefreshTimeout bounds a single refresh exchange.
	RefreshTimeout time.Duration
	// HTTPClient is used for token endpoint calls when set.
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Manager owns the process's single Session. Reads of a fresh token only
// take the read lock; refresh exchanges are collapsed through a singleflight
// group so at most one is in flight.
type Manager struct {
	oauth          *oauth2.Config
	repo           Repo
	authorizer     Authorizer
	leeway         time.Duration
	refreshTimeout time.Duration
	httpClient     *http.Client
	metrics        *metrics.Metrics

	mu      sync.RWMutex
	session *Session
	fatal   error
	group   singleflight.Group
}

// NewOAuthConfig builds the Spotify OAuth client configuration from the
// credential store.
func NewOAuthConfig(c config.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURI(),
		Scopes:       c.GetScopes(),
		Endpoint:     spotifyauth.Endpoint,
	}
}

func NewManager(oauthConfig *oauth2.Config, opts Options) *Manager {
	timeout := opts.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &Manager{
		oauth:          oauthConfig,
		repo:           opts.Repo,
		authorizer:     opts.Authorizer,
		leeway:         opts.RefreshLeeway,
		refreshTimeout: timeout,
		httpClient:     opts.HTTPClient,
		metrics:        opts.Metrics,
	}
}

// Bootstrap establishes the session. A cached session is reused when its
// granted scopes equal the requested scopes exactly; otherwise, or when the
// cached refresh token is rejected, interactive consent is run. A token
// endpoint that cannot be reached fails Bootstrap without prompting.
func (m *Manager) Bootstrap(ctx context.Context) (*Session, error) {
	if err := m.checkCredentials(); err != nil {
		return nil, err
	}

	cached, err := m.loadCached(ctx)
	if err != nil {
		return nil, fmt.Errorf("[session Bootstrap] %w: %w", errors.ErrAuth, err)
	}
	if cached != nil {
		m.install(cached)
		log.Info().Time("expires_at", cached.ExpiresAt).Msg("Reusing cached Spotify session")
		return cloneSession(cached), nil
	}

	return m.Login(ctx)
}

// Login always runs interactive consent and replaces any cached session.
func (m *Manager) Login(ctx context.Context) (*Session, error) {
	if err := m.checkCredentials(); err != nil {
		return nil, err
	}
	if m.authorizer == nil {
		return nil, fmt.Errorf("[session Login] %w: no cached session and interactive consent is unavailable", errors.ErrAuth)
	}

	tok, err := m.authorizer.Authorize(ctx, m.oauth)
	if err != nil {
		return nil, fmt.Errorf("[session Login] %w: %w", errors.ErrAuth, err)
	}

	sess := fromToken(tok, m.oauth.Scopes)
	m.install(sess)
	m.persist(sess)
	log.Info().Strs("scopes", sess.GrantedScopes).Msg("Spotify session authorized")
	return cloneSession(sess), nil
}

// RequireScopes fails with ErrScopeMismatch unless the session was granted
// every scope in required. Scopes are fixed for the process lifetime, so this
// is checked once at startup.
func (m *Manager) RequireScopes(required []string) error {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	if sess == nil {
		return fmt.Errorf("[session RequireScopes] %w: no session", errors.ErrAuth)
	}
	if missing := MissingScopes(sess.GrantedScopes, required); len(missing) > 0 {
		return fmt.Errorf("[session RequireScopes] %w: not granted: %s", errors.ErrScopeMismatch, strings.Join(missing, ", "))
	}
	return nil
}

// GetValidToken returns an access token that is not stale at the instant of
// return, refreshing it first when needed. A rejected refresh is fatal for
// the session: it and every later call fail with ErrAuth.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	sess, fatal := m.session, m.fatal
	m.mu.RUnlock()

	if fatal != nil {
		return "", fatal
	}
	if sess == nil {
		return "", fmt.Errorf("[session GetValidToken] %w: session not bootstrapped", errors.ErrAuth)
	}
	if !m.needsRefresh(sess) {
		return sess.AccessToken, nil
	}

	token, err, _ := m.group.Do(refreshKey, func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *cloneSession(m.session), true
}

// Healthy reports whether commands can still obtain a token: nil unless the
// session is missing or a refresh has been rejected.
func (m *Manager) Healthy() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fatal != nil {
		return m.fatal
	}
	if m.session == nil {
		return fmt.Errorf("[session Healthy] %w: session not bootstrapped", errors.ErrAuth)
	}
	return nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	// Another caller may have refreshed between our stale check and
	// entering the group.
	m.mu.RLock()
	sess, fatal := m.session, m.fatal
	m.mu.RUnlock()
	if fatal != nil {
		return "", fatal
	}
	if !m.needsRefresh(sess) {
		return sess.AccessToken, nil
	}

	refreshed, err := m.exchangeRefresh(ctx, sess)
	if err != nil {
		if refreshRejected(err) {
			fatal := fmt.Errorf("[session refresh] %w: refresh rejected: %v", errors.ErrAuth, err)
			m.mu.Lock()
			m.fatal = fatal
			m.mu.Unlock()
			m.metrics.ObserveRefresh("rejected")
			log.Error().Err(err).Msg("Token refresh rejected; the session is unusable until re-authorized with the login command")
			return "", fatal
		}
		m.metrics.ObserveRefresh("unavailable")
		log.Warn().Err(err).Msg("Token refresh failed")
		return "", fmt.Errorf("[session refresh] %w: %w", errors.ErrUnavailable, err)
	}

	m.install(refreshed)
	m.persist(refreshed)
	m.metrics.ObserveRefresh("ok")
	log.Debug().Time("expires_at", refreshed.ExpiresAt).Msg("Access token refreshed")
	return refreshed.AccessToken, nil
}

// exchangeRefresh performs one refresh_token grant. It is detached from the
// caller's cancellation because other callers share its result.
func (m *Manager) exchangeRefresh(ctx context.Context, sess *Session) (*Session, error) {
	if sess.RefreshToken == "" {
		return nil, errNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
	defer cancel()
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	tok, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: sess.RefreshToken}).Token()
	if err != nil {
		return nil, err
	}

	refreshed := fromToken(tok, sess.GrantedScopes)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = sess.RefreshToken
	}
	return refreshed, nil
}

// loadCached returns a usable cached session, or nil when consent is needed.
// A refresh that fails for any reason other than a rejection is returned as
// an error.
func (m *Manager) loadCached(ctx context.Context) (*Session, error) {
	if m.repo == nil {
		return nil, nil
	}
	cached, err := m.repo.Load()
	if err != nil {
		if !errors.Is(err, errors.ErrSessionNotFound) {
			log.Warn().Err(err).Msg("Ignoring unreadable session cache")
		}
		return nil, nil
	}
	if !ScopesEqual(cached.GrantedScopes, m.oauth.Scopes) {
		log.Info().Msg("Cached session scopes differ from requested scopes; re-authorizing")
		return nil, nil
	}
	if !m.needsRefresh(cached) {
		return cached, nil
	}

	refreshed, err := m.exchangeRefresh(ctx, cached)
	if err != nil {
		if refreshRejected(err) {
			m.metrics.ObserveRefresh("rejected")
			log.Warn().Err(err).Msg("Cached refresh token rejected; re-authorizing")
			return nil, nil
		}
		m.metrics.ObserveRefresh("unavailable")
		return nil, fmt.Errorf("refresh cached session: %w: %w", errors.ErrUnavailable, err)
	}
	m.metrics.ObserveRefresh("ok")
	m.persist(refreshed)
	return refreshed, nil
}

// refreshRejected reports whether the token endpoint refused the grant, as
// opposed to being unreachable or failing on its side.
func refreshRejected(err error) bool {
	if errors.Is(err, errNoRefreshToken) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}
	switch retrieveErr.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return true
	}
	if retrieveErr.Response == nil {
		return false
	}
	status := retrieveErr.Response.StatusCode
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func (m *Manager) needsRefresh(s *Session) bool {
	return s.IsStale(NowTimeFunc().Add(m.leeway))
}

// install replaces the session and clears any fatal state.
func (m *Manager) install(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.fatal = nil
}

func (m *Manager) persist(s *Session) {
	if m.repo == nil {
		return
	}
	if err := m.repo.Save(s); err != nil {
		log.Err(err).Msg("Failed to cache Spotify session")
	}
}

func (m *Manager) checkCredentials() error {
	var missing []string
	if m.oauth.ClientID == "" {
		missing = append(missing, "client id")
	}
	if m.oauth.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if m.oauth.RedirectURL == "" {
		missing = append(missing, "redirect URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("[session Bootstrap] %w: %s", errors.ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

func cloneSession(s *Session) *Session {
	c := *s
	c.GrantedScopes = slices.Clone(s.GrantedScopes)
	return &c
}
