package spotify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var user User
	if _, err := c.do(ctx, token, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TopItems returns the user's top artists or tracks for timeRange.
func (c *Client) TopItems(ctx context.Context, token string, itemType ItemType, timeRange TimeRange, limit int) ([]TopItem, error) {
	q := url.Values{
		"time_range": {string(timeRange)},
		"limit":      {strconv.Itoa(limit)},
	}
	var page paging[TopItem]
	if _, err := c.do(ctx, token, http.MethodGet, "/me/top/"+url.PathEscape(string(itemType)), q, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// SavedTracks returns the most recently saved tracks of the user's library.
func (c *Client) SavedTracks(ctx context.Context, token string, limit int) ([]SavedTrack, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var page paging[SavedTrack]
	if _, err := c.do(ctx, token, http.MethodGet, "/me/tracks", q, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}
