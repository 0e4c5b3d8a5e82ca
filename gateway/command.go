package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
)

// Command names exposed to callers
const (
	CommandPlay            = "play"
	CommandPause           = "pause"
	CommandNextTrack       = "next_track"
	CommandPreviousTrack   = "previous_track"
	CommandSearchTrack     = "search_track"
	CommandPlaySong        = "play_song"
	CommandGetCurrentTrack = "get_current_track"
	CommandAddToQueue      = "add_to_queue"
	CommandGetUserProfile  = "get_user_profile"
	CommandGetUserTopItems = "get_user_top_items"
	CommandGetSavedTracks  = "get_saved_tracks"
)

// Parameter names
const (
	ArgQuery     = "query"
	ArgURI       = "uri"
	ArgItemType  = "item_type"
	ArgTimeRange = "time_range"
	ArgLimit     = "limit"
)

// Command is one inbound invocation. Args hold JSON-shaped values; numbers
// may arrive as float64, json.Number or any Go integer type.
type Command struct {
	Name string
	Args map[string]any
}

// argumentError is an InvalidArgument with the exact text returned to the caller.
type argumentError struct {
	text string
}

func (e *argumentError) Error() string {
	return e.text
}

func (e *argumentError) Unwrap() error {
	return errors.ErrInvalidArgument
}

func invalid(format string, args ...any) error {
	return &argumentError{text: fmt.Sprintf(format, args...)}
}

// stringArg returns the named string argument or def when absent.
func (c Command) stringArg(name, def string) (string, error) {
	v, ok := c.Args[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid("Invalid %s. Expected a string.", name)
	}
	return s, nil
}

// requiredString returns a non-blank string argument.
func (c Command) requiredString(name, hint string) (string, error) {
	s, err := c.stringArg(name, "")
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("Invalid %s. %s", name, hint)
	}
	return s, nil
}

// intArg returns the named integer argument or def when absent.
func (c Command) intArg(name string, def int) (int, error) {
	v, ok := c.Args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return wholeNumber(name, n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, invalid("Invalid %s. Expected an integer.", name)
		}
		return wholeNumber(name, f)
	default:
		return 0, invalid("Invalid %s. Expected an integer.", name)
	}
}

func wholeNumber(name string, f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, invalid("Invalid %s. Expected an integer.", name)
	}
	return int(f), nil
}
