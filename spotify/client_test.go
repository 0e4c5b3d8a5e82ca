package spotify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
	"github.com/jrsteele09/go-spotify-mcp/spotify"
	"github.com/stretchr/testify/require"
)

const testToken = "access-token-1"

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   string
	Auth   string
}

// stubAPI serves a single canned response and records the request it received.
func stubAPI(t *testing.T, status int, body string) (*spotify.Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Query = r.URL.Query()
		rec.Body = string(b)
		rec.Auth = r.Header.Get("Authorization")
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return spotify.New(srv.URL+"/v1", time.Second), rec
}

func TestClient_PlayerCommands(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func(c *spotify.Client) error
		method string
		path   string
	}{
		{"play", func(c *spotify.Client) error { return c.Play(ctx, testToken, nil) }, http.MethodPut, "/v1/me/player/play"},
		{"pause", func(c *spotify.Client) error { return c.Pause(ctx, testToken) }, http.MethodPut, "/v1/me/player/pause"},
		{"next", func(c *spotify.Client) error { return c.Next(ctx, testToken) }, http.MethodPost, "/v1/me/player/next"},
		{"previous", func(c *spotify.Client) error { return c.Previous(ctx, testToken) }, http.MethodPost, "/v1/me/player/previous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := stubAPI(t, http.StatusNoContent, "")
			require.NoError(t, tt.call(c))
			require.Equal(t, tt.method, rec.Method)
			require.Equal(t, tt.path, rec.Path)
			require.Equal(t, "Bearer "+testToken, rec.Auth)
			require.Empty(t, rec.Body)
		})
	}
}

func TestClient_PlayWithURIs(t *testing.T) {
	c, rec := stubAPI(t, http.StatusNoContent, "")
	require.NoError(t, c.Play(context.Background(), testToken, []string{"spotify:track:1"}))

	var body map[string][]string
	require.NoError(t, json.Unmarshal([]byte(rec.Body), &body))
	require.Equal(t, []string{"spotify:track:1"}, body["uris"])
}

func TestClient_AddToQueue(t *testing.T) {
	c, rec := stubAPI(t, http.StatusOK, "")
	require.NoError(t, c.AddToQueue(context.Background(), testToken, "spotify:track:XYZ"))
	require.Equal(t, http.MethodPost, rec.Method)
	require.Equal(t, "/v1/me/player/queue", rec.Path)
	require.Equal(t, []string{"spotify:track:XYZ"}, rec.Query["uri"])
}

func TestClient_SearchTracks(t *testing.T) {
	c, rec := stubAPI(t, http.StatusOK, `{"tracks":{"items":[
		{"name":"Imagine","uri":"spotify:track:imagine","artists":[{"name":"John Lennon"}]},
		{"name":"Imagine (Remastered)","uri":"spotify:track:2","artists":[]}
	]}}`)

	tracks, err := c.SearchTracks(context.Background(), testToken, "Imagine", 1)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	require.Equal(t, "Imagine", tracks[0].Name)
	require.Equal(t, []string{"John Lennon"}, tracks[0].ArtistNames())
	require.Equal(t, "/v1/search", rec.Path)
	require.Equal(t, []string{"Imagine"}, rec.Query["q"])
	require.Equal(t, []string{"track"}, rec.Query["type"])
	require.Equal(t, []string{"1"}, rec.Query["limit"])
}

func TestClient_SearchTracksMissingTracks(t *testing.T) {
	c, _ := stubAPI(t, http.StatusOK, `{}`)
	tracks, err := c.SearchTracks(context.Background(), testToken, "nothing", 1)
	require.NoError(t, err)
	require.Empty(t, tracks)
}

func TestClient_CurrentPlayback(t *testing.T) {
	t.Run("nothing playing", func(t *testing.T) {
		c, _ := stubAPI(t, http.StatusNoContent, "")
		state, err := c.CurrentPlayback(context.Background(), testToken)
		require.NoError(t, err)
		require.Nil(t, state)
	})

	t.Run("null item", func(t *testing.T) {
		c, _ := stubAPI(t, http.StatusOK, `{"is_playing":false,"item":null}`)
		state, err := c.CurrentPlayback(context.Background(), testToken)
		require.NoError(t, err)
		require.NotNil(t, state)
		require.Nil(t, state.Item)
	})

	t.Run("playing", func(t *testing.T) {
		c, rec := stubAPI(t, http.StatusOK, `{"is_playing":true,"item":{"name":"Song","artists":[{"name":"A"},{"name":"B"}]}}`)
		state, err := c.CurrentPlayback(context.Background(), testToken)
		require.NoError(t, err)
		require.True(t, state.IsPlaying)
		require.Equal(t, []string{"A", "B"}, state.Item.ArtistNames())
		require.Equal(t, "/v1/me/player", rec.Path)
	})

	t.Run("episode is not a track", func(t *testing.T) {
		c, _ := stubAPI(t, http.StatusOK, `{"is_playing":true,"currently_playing_type":"episode","item":{"name":"Episode 12","type":"episode","uri":"spotify:episode:E12"}}`)
		state, err := c.CurrentPlayback(context.Background(), testToken)
		require.NoError(t, err)
		require.True(t, state.IsPlaying)
		require.Equal(t, "episode", state.CurrentlyPlayingType)
		require.Nil(t, state.Item)
	})

	t.Run("typed track", func(t *testing.T) {
		c, _ := stubAPI(t, http.StatusOK, `{"is_playing":true,"currently_playing_type":"track","item":{"name":"Song","type":"track","artists":[{"name":"A"}]}}`)
		state, err := c.CurrentPlayback(context.Background(), testToken)
		require.NoError(t, err)
		require.NotNil(t, state.Item)
		require.Equal(t, "Song", state.Item.Name)
	})
}

type headerTransport struct {
	header string
}

func (h headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Client", h.header)
	return http.DefaultTransport.RoundTrip(r)
}

func TestClient_WithHTTPClient(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Client")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := spotify.New(srv.URL+"/v1", time.Second, spotify.WithHTTPClient(&http.Client{Transport: headerTransport{header: "shared"}}))
	require.NoError(t, c.Pause(context.Background(), testToken))
	require.Equal(t, "shared", got)
}

func TestClient_CurrentUser(t *testing.T) {
	c, _ := stubAPI(t, http.StatusOK, `{"display_name":"Jo","country":"GB","email":null}`)
	user, err := c.CurrentUser(context.Background(), testToken)
	require.NoError(t, err)
	require.Equal(t, "Jo", user.DisplayName)
	require.Equal(t, "GB", user.Country)
	require.Nil(t, user.Email)
	require.Nil(t, user.Product)
}

func TestClient_TopItems(t *testing.T) {
	c, rec := stubAPI(t, http.StatusOK, `{"items":[{"name":"Radiohead"},{"name":"Portishead"}]}`)
	items, err := c.TopItems(context.Background(), testToken, spotify.ItemTypeArtists, spotify.TimeRangeLong, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Portishead", items[1].Name)
	require.Equal(t, "/v1/me/top/artists", rec.Path)
	require.Equal(t, []string{"long_term"}, rec.Query["time_range"])
	require.Equal(t, []string{"2"}, rec.Query["limit"])
}

func TestClient_SavedTracks(t *testing.T) {
	c, rec := stubAPI(t, http.StatusOK, `{"items":[{"track":{"name":"One","artists":[{"name":"U2"}]}},{"track":null}]}`)
	saved, err := c.SavedTracks(context.Background(), testToken, 5)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.Equal(t, "One", saved[0].Track.Name)
	require.Nil(t, saved[1].Track)
	require.Equal(t, "/v1/me/tracks", rec.Path)
	require.Equal(t, []string{"5"}, rec.Query["limit"])
}

func TestClient_UpstreamError(t *testing.T) {
	t.Run("error envelope", func(t *testing.T) {
		c, _ := stubAPI(t, http.StatusNotFound, `{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`)
		err := c.AddToQueue(context.Background(), testToken, "spotify:track:XYZ")
		require.Error(t, err)

		var upstreamErr *spotify.UpstreamError
		require.True(t, errors.As(err, &upstreamErr))
		require.Equal(t, http.StatusNotFound, upstreamErr.StatusCode)
		require.Equal(t, "NO_ACTIVE_DEVICE", upstreamErr.Reason)
		require.True(t, errors.Is(err, errors.ErrUpstreamRejected))
		require.Contains(t, err.Error(), "No active device found")
	})

	t.Run("unparseable body", func(t *testing.T) {
		c, _ := stubAPI(t, http.StatusBadGateway, `<html>bad gateway</html>`)
		_, err := c.CurrentUser(context.Background(), testToken)

		var upstreamErr *spotify.UpstreamError
		require.True(t, errors.As(err, &upstreamErr))
		require.Equal(t, "Bad Gateway", upstreamErr.Message)
	})
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := spotify.New(srv.URL, 20*time.Millisecond)
	err := c.Pause(context.Background(), testToken)
	require.Error(t, err)

	var transportErr *spotify.TransportError
	require.True(t, errors.As(err, &transportErr))
	require.True(t, errors.Is(err, errors.ErrUnavailable))
	require.False(t, errors.Is(err, errors.ErrUpstreamRejected))
}
