package spotify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SearchTracks returns up to limit tracks matching query, in Spotify's order.
func (c *Client) SearchTracks(ctx context.Context, token, query string, limit int) ([]Track, error) {
	q := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}
	var resp searchResponse
	if _, err := c.do(ctx, token, http.MethodGet, "/search", q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tracks == nil {
		return nil, nil
	}
	return resp.Tracks.Items, nil
}
