package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-spotify-mcp/gateway"
	"github.com/jrsteele09/go-spotify-mcp/internal/config"
	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
	"github.com/jrsteele09/go-spotify-mcp/internal/metrics"
	"github.com/jrsteele09/go-spotify-mcp/server"
	"github.com/jrsteele09/go-spotify-mcp/spotify"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher records commands and answers with canned results while
// advertising the real command catalog.
type fakeDispatcher struct {
	catalog []gateway.CommandSpec

	mu       sync.Mutex
	commands []gateway.Command
	results  map[string]gateway.Result
}

func newFakeDispatcher() *fakeDispatcher {
	g := gateway.New(nil, spotify.New("", time.Second))
	return &fakeDispatcher{catalog: g.Catalog(), results: map[string]gateway.Result{}}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, cmd gateway.Command) gateway.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	if res, ok := f.results[cmd.Name]; ok {
		return res
	}
	return gateway.Success("ok")
}

func (f *fakeDispatcher) Catalog() []gateway.CommandSpec {
	return f.catalog
}

func (f *fakeDispatcher) lastCommand() gateway.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands[len(f.commands)-1]
}

// connect serves s over an in-memory transport and returns a client session.
func connect(t *testing.T, s *server.Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	done := make(chan error, 1)
	go func() {
		done <- s.RunTransport(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("server did not stop")
		}
	})
	return session
}

func callText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, server.New(config.New(), newFakeDispatcher()))

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	tools := map[string]*mcp.Tool{}
	for _, tool := range res.Tools {
		tools[tool.Name] = tool
	}
	require.Len(t, tools, 11)
	for _, name := range []string{
		"play", "pause", "next_track", "previous_track", "search_track", "play_song",
		"get_current_track", "add_to_queue", "get_user_profile", "get_user_top_items", "get_saved_tracks",
	} {
		require.Contains(t, tools, name)
	}

	raw, err := json.Marshal(tools["get_user_top_items"].InputSchema)
	require.NoError(t, err)
	var schema struct {
		Type       string `json:"type"`
		Properties map[string]struct {
			Type    string          `json:"type"`
			Default json.RawMessage `json:"default"`
			Enum    []string        `json:"enum"`
			Maximum float64         `json:"maximum"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(raw, &schema))
	require.Equal(t, "object", schema.Type)
	require.Empty(t, schema.Required)
	require.Equal(t, []string{"tracks", "artists"}, schema.Properties["item_type"].Enum)
	require.JSONEq(t, `"medium_term"`, string(schema.Properties["time_range"].Default))
	require.Equal(t, "integer", schema.Properties["limit"].Type)
	require.Equal(t, float64(50), schema.Properties["limit"].Maximum)

	raw, err = json.Marshal(tools["search_track"].InputSchema)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &schema))
	require.Equal(t, []string{"query"}, schema.Required)
}

func TestServer_CallTool(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.results[gateway.CommandSearchTrack] = gateway.Success("Found track: Imagine by John Lennon")
	dispatcher.results[gateway.CommandGetCurrentTrack] = gateway.NotFound("No track is currently playing.")
	dispatcher.results[gateway.CommandAddToQueue] = gateway.Failure(gateway.KindUpstreamRejected, "Failed to add to queue: http status 403: Premium required")
	session := connect(t, server.New(config.New(), dispatcher))
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      gateway.CommandSearchTrack,
			Arguments: map[string]any{"query": "Imagine"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)
		require.Equal(t, "Found track: Imagine by John Lennon", callText(t, res))

		cmd := dispatcher.lastCommand()
		require.Equal(t, gateway.CommandSearchTrack, cmd.Name)
		require.Equal(t, map[string]any{"query": "Imagine"}, cmd.Args)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: gateway.CommandGetCurrentTrack})
		require.NoError(t, err)
		require.False(t, res.IsError)
		require.Equal(t, "No track is currently playing.", callText(t, res))
	})

	t.Run("failure sets IsError", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      gateway.CommandAddToQueue,
			Arguments: map[string]any{"uri": "spotify:track:XYZ"},
		})
		require.NoError(t, err)
		require.True(t, res.IsError)
		require.Equal(t, "Failed to add to queue: http status 403: Premium required", callText(t, res))
	})

	t.Run("numbers keep their literal form", func(t *testing.T) {
		_, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      gateway.CommandGetSavedTracks,
			Arguments: map[string]any{"limit": 5},
		})
		require.NoError(t, err)
		require.Equal(t, json.Number("5"), dispatcher.lastCommand().Args["limit"])
	})
}

// The real gateway behind the transport rejects bad arguments with its own
// message before any upstream call.
func TestServer_CallToolThroughGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call %s %s", r.Method, r.URL.Path)
	}))
	defer upstream.Close()

	g := gateway.New(staticTokens{}, spotify.New(upstream.URL, time.Second))
	session := connect(t, server.New(config.New(), g))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      gateway.CommandGetUserTopItems,
		Arguments: map[string]any{"item_type": "albums"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "Invalid item_type. Choose 'tracks' or 'artists'.", callText(t, res))

	res, err = session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      gateway.CommandGetSavedTracks,
		Arguments: map[string]any{"limit": 2.5},
	})
	require.NoError(t, err)
	require.Equal(t, "Invalid limit. Expected an integer.", callText(t, res))
}

type staticTokens struct{}

func (staticTokens) GetValidToken(context.Context) (string, error) {
	return "token", nil
}

func TestServer_HTTPRoutes(t *testing.T) {
	m := metrics.New()
	var sessionLost atomic.Bool
	s := server.New(config.New(), newFakeDispatcher(),
		server.WithMetrics(m),
		server.WithHealthCheck(func() error {
			if sessionLost.Load() {
				return errors.Wrapf(errors.ErrAuth, "refresh rejected")
			}
			return nil
		}),
	)
	srv := httptest.NewServer(s)
	defer srv.Close()

	t.Run("healthy", func(t *testing.T) {
		resp, err := http.Get(srv.URL + server.RouteHealth)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		require.JSONEq(t, `{"status":"ok"}`, string(body))
	})

	t.Run("session lost", func(t *testing.T) {
		sessionLost.Store(true)
		defer sessionLost.Store(false)

		resp, err := http.Get(srv.URL + server.RouteHealth)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		m.ObserveDispatch("pause", "success", time.Millisecond)
		resp, err := http.Get(srv.URL + server.RouteMetrics)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		require.Contains(t, string(body), "spotify_mcp_dispatches_total")
	})
}

func TestServer_CORS(t *testing.T) {
	t.Setenv("MCP_ALLOWED_ORIGINS", "http://localhost:3000")
	srv := httptest.NewServer(server.New(config.New(), newFakeDispatcher()))
	defer srv.Close()

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+server.RouteMCP, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := preflight("http://localhost:3000")
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Mcp-Session-Id")

	resp = preflight("http://evil.example")
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodPost, srv.URL+server.RouteMCP, strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_StreamableHTTP(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.results[gateway.CommandPause] = gateway.Success("Playback paused.")
	srv := httptest.NewServer(server.New(config.New(), dispatcher))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "http-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL + server.RouteMCP}, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: gateway.CommandPause})
	require.NoError(t, err)
	require.Equal(t, "Playback paused.", callText(t, res))
}

func TestServer_RunUnsupportedTransport(t *testing.T) {
	t.Setenv("MCP_TRANSPORT", "carrier-pigeon")
	err := server.New(config.New(), newFakeDispatcher()).Run(context.Background())
	require.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestServer_RunHTTPStopsOnCancel(t *testing.T) {
	t.Setenv("MCP_TRANSPORT", config.TransportHTTP)
	t.Setenv("MCP_HTTP_ADDR", "127.0.0.1:0")
	s := server.New(config.New(), newFakeDispatcher())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
