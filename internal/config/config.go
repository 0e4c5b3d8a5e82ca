package config

import (
	"strings"

	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
)

type Config interface {
	EnvConfig
	SpotifyConfig
	TransportConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Spotify
	Transport
}

func New() Config {
	return mainConfig{}
}

// Validate checks the credential store once at process start. A missing
// client identity is fatal for the session, so it wraps ErrMissingCredentials.
func Validate(c Config) error {
	var missing []string
	if c.GetClientID() == "" {
		missing = append(missing, clientIDVar)
	}
	if c.GetClientSecret() == "" {
		missing = append(missing, clientSecretVar)
	}
	if c.GetRedirectURI() == "" {
		missing = append(missing, redirectURIVar)
	}
	if len(missing) > 0 {
		return errors.Wrapf(errors.ErrMissingCredentials, "[config Validate] %s not set", strings.Join(missing, ", "))
	}

	switch c.GetTransport() {
	case TransportStdio, TransportHTTP:
	default:
		return errors.Wrapf(errors.ErrUnsupported, "[config Validate] transport %q", c.GetTransport())
	}
	return nil
}
