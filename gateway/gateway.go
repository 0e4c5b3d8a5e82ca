// Package gateway validates and dispatches commands against the upstream
// client and normalizes every outcome into a Result.
package gateway

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
	"github.com/jrsteele09/go-spotify-mcp/internal/metrics"
	"github.com/jrsteele09/go-spotify-mcp/spotify"
	"github.com/rs/zerolog/log"
)

// TokenProvider yields a token that is valid at the moment of return.
type TokenProvider interface {
	GetValidToken(ctx context.Context) (string, error)
}

// Upstream is the call surface the gateway dispatches to.
type Upstream interface {
	Play(ctx context.Context, token string, uris []string) error
	Pause(ctx context.Context, token string) error
	Next(ctx context.Context, token string) error
	Previous(ctx context.Context, token string) error
	SearchTracks(ctx context.Context, token, query string, limit int) ([]spotify.Track, error)
	AddToQueue(ctx context.Context, token, uri string) error
	CurrentPlayback(ctx context.Context, token string) (*spotify.PlaybackState, error)
	CurrentUser(ctx context.Context, token string) (*spotify.User, error)
	TopItems(ctx context.Context, token string, itemType spotify.ItemType, timeRange spotify.TimeRange, limit int) ([]spotify.TopItem, error)
	SavedTracks(ctx context.Context, token string, limit int) ([]spotify.SavedTrack, error)
}

var _ Upstream = (*spotify.Client)(nil)

// Gateway holds no state across dispatches; the only shared state lives
// behind the TokenProvider.
type Gateway struct {
	tokens   TokenProvider
	upstream Upstream
	metrics  *metrics.Metrics
	timeout  time.Duration

	catalog []CommandSpec
	index   map[string]int
}

type Option func(*Gateway)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithTimeout bounds a whole dispatch, token refresh included.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

func New(tokens TokenProvider, upstream Upstream, opts ...Option) *Gateway {
	g := &Gateway{
		tokens:   tokens,
		upstream: upstream,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.catalog = g.buildCatalog()
	g.index = make(map[string]int, len(g.catalog))
	for i, spec := range g.catalog {
		g.index[spec.Name] = i
	}
	return g
}

// Dispatch runs one command. It never returns an error or panics: every
// failure is converted into a Result whose text starts with "Failed to".
func (g *Gateway) Dispatch(ctx context.Context, cmd Command) (res Result) {
	start := time.Now()
	logger := log.Ctx(ctx).With().Str("command", cmd.Name).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered from panic in dispatch")
			res = Failure(KindUnavailable, fmt.Sprintf("Failed to %s: internal error", g.verb(cmd)))
		}
		g.metrics.ObserveDispatch(cmd.Name, string(res.Kind), time.Since(start))
		logger.Debug().Str("kind", string(res.Kind)).Dur("elapsed", time.Since(start)).Msg("Command dispatched")
	}()

	spec, ok := g.Lookup(cmd.Name)
	if !ok {
		return Failure(KindInvalidArgument, fmt.Sprintf("Unknown command %q.", cmd.Name))
	}

	act, err := spec.prepare(cmd)
	if err != nil {
		return Failure(KindInvalidArgument, err.Error())
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	token, err := g.tokens.GetValidToken(ctx)
	if err != nil {
		return g.failure(ctx, spec, cmd, err)
	}

	res, err = act(ctx, token)
	if err != nil {
		return g.failure(ctx, spec, cmd, err)
	}
	return res
}

func (g *Gateway) failure(ctx context.Context, spec CommandSpec, cmd Command, err error) Result {
	kind := Classify(err)
	if kind == KindAuth {
		log.Error().Err(err).Str("command", cmd.Name).Msg("Spotify authorization lost; no command can succeed until the login command is re-run")
	} else {
		log.Ctx(ctx).Debug().Err(err).Str("command", cmd.Name).Msg("Command failed")
	}
	return Failure(kind, fmt.Sprintf("Failed to %s: %s", spec.FailureVerb(cmd), failureMessage(err)))
}

func (g *Gateway) verb(cmd Command) string {
	if spec, ok := g.Lookup(cmd.Name); ok {
		return spec.FailureVerb(cmd)
	}
	return "run " + cmd.Name
}

// Classify maps an error from the session manager or upstream client to a
// result kind. Anything unrecognised is treated as Unavailable.
func Classify(err error) Kind {
	var upstreamErr *spotify.UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		return KindUpstreamRejected
	case errors.Is(err, errors.ErrAuth):
		return KindAuth
	case errors.Is(err, errors.ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindUnavailable
	}
}

func failureMessage(err error) string {
	var upstreamErr *spotify.UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Error()
	}
	return err.Error()
}
