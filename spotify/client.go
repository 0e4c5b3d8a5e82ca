// Package spotify is a thin, stateless call surface over the Spotify Web API.
// Every method performs exactly one HTTP request with the bearer token it is
// given; it neither retries nor interprets results.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

type Client struct {
	httpClient *http.Client
	baseURL    string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The caller owns its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for baseURL. Every request is bounded by timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a single request and decodes a JSON body into out when out is
// non-nil and the response carries content. It returns the HTTP status.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body any, out any) (int, error) {
	op := method + " " + path

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("[spotify %s] marshal body: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return 0, fmt.Errorf("[spotify %s] build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		if len(raw) == 0 || json.Unmarshal(raw, &env) != nil {
			return resp.StatusCode, newUpstreamError(resp.StatusCode, nil)
		}
		return resp.StatusCode, newUpstreamError(resp.StatusCode, &env)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("[spotify %s] decode response: %w", op, err)
	}
	return resp.StatusCode, nil
}
