package gateway

import (
	"context"
	"slices"

	"github.com/jrsteele09/go-spotify-mcp/spotify"
)

// ParamType is the JSON type of a command parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
)

type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Default     any
	Enum        []string
	Minimum     *int
	Maximum     *int
}

// action performs the upstream work of a validated command.
type action func(ctx context.Context, token string) (Result, error)

// CommandSpec declares one command: its parameters, the scopes it relies on,
// and how it is validated and executed.
type CommandSpec struct {
	Name        string
	Description string
	Params      []Param
	Scopes      []string

	failureVerb func(cmd Command) string
	prepare     func(cmd Command) (action, error)
}

// FailureVerb names the attempted operation in "Failed to ..." texts.
func (s CommandSpec) FailureVerb(cmd Command) string {
	return s.failureVerb(cmd)
}

const (
	maxLimit          = 50
	defaultLimit      = 10
	searchResultLimit = 1
	defaultItemType   = string(spotify.ItemTypeTracks)
	defaultTimeRange  = string(spotify.TimeRangeMedium)
)

var (
	itemTypes  = []string{string(spotify.ItemTypeTracks), string(spotify.ItemTypeArtists)}
	timeRanges = []string{string(spotify.TimeRangeShort), string(spotify.TimeRangeMedium), string(spotify.TimeRangeLong)}
)

func fixedVerb(verb string) func(Command) string {
	return func(Command) string { return verb }
}

func limitParam(description string) Param {
	lo, hi := 1, maxLimit
	return Param{
		Name:        ArgLimit,
		Type:        ParamInteger,
		Description: description,
		Default:     defaultLimit,
		Minimum:     &lo,
		Maximum:     &hi,
	}
}

// buildCatalog returns the command set in presentation order.
func (g *Gateway) buildCatalog() []CommandSpec {
	return []CommandSpec{
		{
			Name:        CommandPlay,
			Description: "Start or resume playback.",
			Scopes:      []string{"app-remote-control"},
			failureVerb: fixedVerb("start playback"),
			prepare:     g.prepareTransport(g.upstream.Play, "Playback started."),
		},
		{
			Name:        CommandPause,
			Description: "Pause playback.",
			Scopes:      []string{"app-remote-control"},
			failureVerb: fixedVerb("pause playback"),
			prepare:     g.prepareTransport(noURIs(g.upstream.Pause), "Playback paused."),
		},
		{
			Name:        CommandNextTrack,
			Description: "Skip to the next track.",
			Scopes:      []string{"app-remote-control"},
			failureVerb: fixedVerb("skip to next track"),
			prepare:     g.prepareTransport(noURIs(g.upstream.Next), "Skipped to next track."),
		},
		{
			Name:        CommandPreviousTrack,
			Description: "Skip to the previous track.",
			Scopes:      []string{"app-remote-control"},
			failureVerb: fixedVerb("skip to previous track"),
			prepare:     g.prepareTransport(noURIs(g.upstream.Previous), "Skipped to previous track."),
		},
		{
			Name:        CommandSearchTrack,
			Description: "Search for a track by name.",
			Params: []Param{
				{Name: ArgQuery, Type: ParamString, Description: "track name or search expression", Required: true},
			},
			failureVerb: fixedVerb("search for track"),
			prepare:     g.prepareSearchTrack,
		},
		{
			Name:        CommandPlaySong,
			Description: "Search for a song and start playback of the first result.",
			Params: []Param{
				{Name: ArgQuery, Type: ParamString, Description: "track name or search expression", Required: true},
			},
			Scopes:      []string{"app-remote-control"},
			failureVerb: fixedVerb("play song"),
			prepare:     g.preparePlaySong,
		},
		{
			Name:        CommandGetCurrentTrack,
			Description: "Get the currently playing track.",
			Scopes:      []string{"user-read-currently-playing", "user-read-playback-state"},
			failureVerb: fixedVerb("get current track"),
			prepare:     g.prepareCurrentTrack,
		},
		{
			Name:        CommandAddToQueue,
			Description: "Add a track to the playback queue.",
			Params: []Param{
				{Name: ArgURI, Type: ParamString, Description: "Spotify track URI, e.g. spotify:track:4uLU6hMCjMI75M1A2tKUQC", Required: true},
			},
			Scopes:      []string{"app-remote-control"},
			failureVerb: fixedVerb("add to queue"),
			prepare:     g.prepareAddToQueue,
		},
		{
			Name:        CommandGetUserProfile,
			Description: "Retrieve the current user's profile information.",
			failureVerb: fixedVerb("retrieve user profile"),
			prepare:     g.prepareUserProfile,
		},
		{
			Name:        CommandGetUserTopItems,
			Description: "Fetch the user's top items (artists or tracks) over a specified time range.",
			Params: []Param{
				{Name: ArgItemType, Type: ParamString, Description: "'tracks' or 'artists'", Default: defaultItemType, Enum: itemTypes},
				{Name: ArgTimeRange, Type: ParamString, Description: "'short_term' (~4 weeks), 'medium_term' (~6 months) or 'long_term' (~1 year)", Default: defaultTimeRange, Enum: timeRanges},
				limitParam("number of items to return (1-50)"),
			},
			Scopes: []string{"user-top-read"},
			failureVerb: func(cmd Command) string {
				itemType, err := cmd.stringArg(ArgItemType, defaultItemType)
				if err != nil {
					itemType = defaultItemType
				}
				return "retrieve top " + itemType
			},
			prepare: g.prepareTopItems,
		},
		{
			Name:        CommandGetSavedTracks,
			Description: "Retrieve tracks saved to the user's library.",
			Params:      []Param{limitParam("number of saved tracks to return (1-50)")},
			Scopes:      []string{"user-library-read"},
			failureVerb: fixedVerb("retrieve saved tracks"),
			prepare:     g.prepareSavedTracks,
		},
	}
}

// Catalog returns the supported commands in presentation order.
func (g *Gateway) Catalog() []CommandSpec {
	return slices.Clone(g.catalog)
}

// Lookup returns the CommandSpec registered under name.
func (g *Gateway) Lookup(name string) (CommandSpec, bool) {
	i, ok := g.index[name]
	if !ok {
		return CommandSpec{}, false
	}
	return g.catalog[i], true
}

// RequiredScopes is the union of the scopes every command relies on.
func (g *Gateway) RequiredScopes() []string {
	var scopes []string
	for _, spec := range g.catalog {
		for _, s := range spec.Scopes {
			if !slices.Contains(scopes, s) {
				scopes = append(scopes, s)
			}
		}
	}
	slices.Sort(scopes)
	return scopes
}

func noURIs(fn func(ctx context.Context, token string) error) func(ctx context.Context, token string, uris []string) error {
	return func(ctx context.Context, token string, _ []string) error {
		return fn(ctx, token)
	}
}
