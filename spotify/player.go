package spotify

import (
	"context"
	"net/http"
	"net/url"
)

type playRequest struct {
	URIs []string `json:"uris,omitempty"`
}

// Play starts or resumes playback on the active device. With uris it replaces
// the playback context with exactly those tracks.
func (c *Client) Play(ctx context.Context, token string, uris []string) error {
	var body any
	if len(uris) > 0 {
		body = playRequest{URIs: uris}
	}
	_, err := c.do(ctx, token, http.MethodPut, "/me/player/play", nil, body, nil)
	return err
}

func (c *Client) Pause(ctx context.Context, token string) error {
	_, err := c.do(ctx, token, http.MethodPut, "/me/player/pause", nil, nil, nil)
	return err
}

func (c *Client) Next(ctx context.Context, token string) error {
	_, err := c.do(ctx, token, http.MethodPost, "/me/player/next", nil, nil, nil)
	return err
}

func (c *Client) Previous(ctx context.Context, token string) error {
	_, err := c.do(ctx, token, http.MethodPost, "/me/player/previous", nil, nil, nil)
	return err
}

// AddToQueue appends uri to the end of the user's playback queue.
func (c *Client) AddToQueue(ctx context.Context, token, uri string) error {
	q := url.Values{"uri": {uri}}
	_, err := c.do(ctx, token, http.MethodPost, "/me/player/queue", q, nil, nil)
	return err
}

// CurrentPlayback returns nil, nil when Spotify reports no active playback.
func (c *Client) CurrentPlayback(ctx context.Context, token string) (*PlaybackState, error) {
	var state PlaybackState
	status, err := c.do(ctx, token, http.MethodGet, "/me/player", nil, nil, &state)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	state.dropNonTrack()
	return &state, nil
}
