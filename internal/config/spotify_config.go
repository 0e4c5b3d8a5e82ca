package config

import (
	"strings"
	"time"
)

const (
	clientIDVar       = "SPOTIFY_CLIENT_ID"
	clientSecretVar   = "SPOTIFY_CLIENT_SECRET"
	redirectURIVar    = "SPOTIFY_REDIRECT_URI"
	tokenCacheVar     = "SPOTIFY_TOKEN_CACHE"
	apiURLVar         = "SPOTIFY_API_URL"
	requestTimeoutVar = "SPOTIFY_REQUEST_TIMEOUT"
	refreshLeewayVar  = "SPOTIFY_REFRESH_LEEWAY"
	consentTimeoutVar = "SPOTIFY_CONSENT_TIMEOUT"
)

// Scope is the fixed permission set requested from Spotify for the lifetime
// of the process.
const Scope = "user-read-currently-playing," +
	"user-read-playback-state," +
	"app-remote-control,streaming," +
	"playlist-read-private,playlist-read-collaborative," +
	"playlist-modify-private," +
	"playlist-modify-public," +
	"user-read-playback-position," +
	"user-top-read," +
	"user-read-recently-played," +
	"user-library-modify," +
	"user-library-read"

type SpotifyConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetTokenCachePath() string
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetRefreshLeeway() time.Duration
	GetConsentTimeout() time.Duration
}

type Spotify struct{}

var _ SpotifyConfig = Spotify{}

func (Spotify) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

func (Spotify) GetClientSecret() string {
	return GetEnv(clientSecretVar, "")
}

func (Spotify) GetRedirectURI() string {
	return GetEnv(redirectURIVar, "")
}

func (Spotify) GetScopes() []string {
	return SplitScopes(Scope)
}

// GetTokenCachePath is where the authenticated session is cached between runs.
func (Spotify) GetTokenCachePath() string {
	return GetEnv(tokenCacheVar, ".cache")
}

func (Spotify) GetAPIBaseURL() string {
	return strings.TrimSuffix(GetEnv(apiURLVar, "https://api.spotify.com/v1"), "/")
}

func (Spotify) GetRequestTimeout() time.Duration {
	return GetDurationEnv(requestTimeoutVar, 10*time.Second)
}

// GetRefreshLeeway is how long before expiry a token is already treated as stale.
func (Spotify) GetRefreshLeeway() time.Duration {
	return GetDurationEnv(refreshLeewayVar, 60*time.Second)
}

func (Spotify) GetConsentTimeout() time.Duration {
	return GetDurationEnv(consentTimeoutVar, 5*time.Minute)
}

// SplitScopes accepts comma or space separated scope strings.
func SplitScopes(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
	scopes := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		scopes = append(scopes, f)
	}
	return scopes
}
