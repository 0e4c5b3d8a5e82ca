package gateway

import (
	"context"
	"fmt"
	"slices"

	"github.com/jrsteele09/go-spotify-mcp/internal/utils"
	"github.com/jrsteele09/go-spotify-mcp/spotify"
)

func (g *Gateway) prepareTransport(call func(ctx context.Context, token string, uris []string) error, text string) func(Command) (action, error) {
	return func(Command) (action, error) {
		return func(ctx context.Context, token string) (Result, error) {
			if err := call(ctx, token, nil); err != nil {
				return Result{}, err
			}
			return Success(text), nil
		}, nil
	}
}

// Searches take the first result as-is. This is a first-match policy, not a
// ranking: Spotify's own ordering decides which track is picked.
func (g *Gateway) firstTrack(ctx context.Context, token, query string) (*spotify.Track, error) {
	tracks, err := g.upstream.SearchTracks(ctx, token, query, searchResultLimit)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}
	return &tracks[0], nil
}

func (g *Gateway) prepareSearchTrack(cmd Command) (action, error) {
	query, err := cmd.requiredString(ArgQuery, "Provide a non-empty search query.")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, token string) (Result, error) {
		track, err := g.firstTrack(ctx, token, query)
		if err != nil {
			return Result{}, err
		}
		if track == nil {
			return NotFound("No track found."), nil
		}
		return Success("Found track: " + describeTrack(*track)), nil
	}, nil
}

func (g *Gateway) preparePlaySong(cmd Command) (action, error) {
	query, err := cmd.requiredString(ArgQuery, "Provide a non-empty search query.")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, token string) (Result, error) {
		track, err := g.firstTrack(ctx, token, query)
		if err != nil {
			return Result{}, err
		}
		if track == nil {
			return NotFound("No track found to play."), nil
		}
		if err := g.upstream.Play(ctx, token, []string{track.URI}); err != nil {
			return Result{}, err
		}
		return Success("Now playing: " + describeTrack(*track)), nil
	}, nil
}

func (g *Gateway) prepareCurrentTrack(Command) (action, error) {
	return func(ctx context.Context, token string) (Result, error) {
		state, err := g.upstream.CurrentPlayback(ctx, token)
		if err != nil {
			return Result{}, err
		}
		if state == nil || state.Item == nil {
			return NotFound("No track is currently playing."), nil
		}
		return Success("Currently playing: " + describeTrack(*state.Item)), nil
	}, nil
}

func (g *Gateway) prepareAddToQueue(cmd Command) (action, error) {
	uri, err := cmd.requiredString(ArgURI, "Provide a non-empty track URI.")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, token string) (Result, error) {
		if err := g.upstream.AddToQueue(ctx, token, uri); err != nil {
			return Result{}, err
		}
		return Success(fmt.Sprintf("Track with URI %s added to queue.", uri)), nil
	}, nil
}

func (g *Gateway) prepareUserProfile(Command) (action, error) {
	return func(ctx context.Context, token string) (Result, error) {
		user, err := g.upstream.CurrentUser(ctx, token)
		if err != nil {
			return Result{}, err
		}
		if user == nil {
			user = &spotify.User{}
		}
		return Success(fmt.Sprintf("User: %s, Email: %s, Country: %s, Subscription: %s",
			user.DisplayName,
			utils.ValueOr(user.Email, "N/A"),
			user.Country,
			utils.ValueOr(user.Product, "N/A"),
		)), nil
	}, nil
}

func (g *Gateway) prepareTopItems(cmd Command) (action, error) {
	itemType, err := cmd.stringArg(ArgItemType, defaultItemType)
	if err != nil || !slices.Contains(itemTypes, itemType) {
		return nil, invalid("Invalid item_type. Choose 'tracks' or 'artists'.")
	}
	timeRange, err := cmd.stringArg(ArgTimeRange, defaultTimeRange)
	if err != nil || !slices.Contains(timeRanges, timeRange) {
		return nil, invalid("Invalid time_range. Choose 'short_term', 'medium_term' or 'long_term'.")
	}
	limit, err := validLimit(cmd)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, token string) (Result, error) {
		items, err := g.upstream.TopItems(ctx, token, spotify.ItemType(itemType), spotify.TimeRange(timeRange), limit)
		if err != nil {
			return Result{}, err
		}
		names := make([]string, 0, len(items))
		for _, item := range items {
			names = append(names, item.Name)
		}
		return Success(fmt.Sprintf("Top %s: %s", itemType, joinEntries(names))), nil
	}, nil
}

func (g *Gateway) prepareSavedTracks(cmd Command) (action, error) {
	limit, err := validLimit(cmd)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, token string) (Result, error) {
		saved, err := g.upstream.SavedTracks(ctx, token, limit)
		if err != nil {
			return Result{}, err
		}
		entries := make([]string, 0, len(saved))
		for _, item := range saved {
			if item.Track == nil {
				continue
			}
			entries = append(entries, describeTrack(*item.Track))
		}
		return Success("Saved tracks: " + joinEntries(entries)), nil
	}, nil
}

func validLimit(cmd Command) (int, error) {
	limit, err := cmd.intArg(ArgLimit, defaultLimit)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > maxLimit {
		return 0, invalid("Invalid limit. Choose a value between 1 and %d.", maxLimit)
	}
	return limit, nil
}
