package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-spotify-mcp/gateway"
	"github.com/jrsteele09/go-spotify-mcp/internal/config"
	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
	"github.com/jrsteele09/go-spotify-mcp/internal/metrics"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const implementationVersion = "1.0.0"

// Dispatcher runs gateway commands and describes the commands it supports.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd gateway.Command) gateway.Result
	Catalog() []gateway.CommandSpec
}

var _ Dispatcher = (*gateway.Gateway)(nil)

// Server exposes the gateway commands as MCP tools over stdio or streamable
// HTTP.
type Server struct {
	env        string
	config     config.Config
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	health     func() error
	mcp        *mcp.Server
	mux        *http.ServeMux
	routes     []string
}

type Option func(*Server)

// WithMetrics exposes m on /metrics when serving HTTP.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealthCheck sets the check reported by /healthz.
func WithHealthCheck(check func() error) Option {
	return func(s *Server) { s.health = check }
}

func New(c config.Config, dispatcher Dispatcher, opts ...Option) *Server {
	s := &Server{
		env:        c.GetEnv(),
		config:     c,
		dispatcher: dispatcher,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: c.GetAppName(), Version: implementationVersion}, nil)
	for _, spec := range dispatcher.Catalog() {
		s.mcp.AddTool(&mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: inputSchema(spec.Params),
		}, s.toolHandler(spec.Name))
	}

	s.initRoutes()
	return s
}

// Run serves the configured transport until ctx is cancelled or, for stdio,
// the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	switch transport := s.config.GetTransport(); transport {
	case config.TransportStdio:
		log.Info().Msg("Serving MCP over stdio")
		return s.RunTransport(ctx, &mcp.StdioTransport{})
	case config.TransportHTTP:
		return s.serveHTTP(ctx, s.config.GetHTTPAddr())
	default:
		return errors.Wrapf(errors.ErrUnsupported, "[Server Run] transport %q", transport)
	}
}

// RunTransport serves a single MCP session over t.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	err := s.mcp.Run(ctx, t)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("[Server RunTransport] %w", err)
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// toolHandler adapts one gateway command to an MCP tool. The gateway never
// fails, so the handler never returns a protocol error: failures are
// reported as text with IsError set.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := log.With().Str("request_id", uuid.NewString()).Str("tool", name).Logger()
		ctx = logger.WithContext(ctx)

		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		args, err := decodeArguments(raw)
		if err != nil {
			logger.Debug().Err(err).Msg("Rejected tool arguments")
			return toolResult(gateway.Failure(gateway.KindInvalidArgument, "Invalid arguments. Expected a JSON object.")), nil
		}

		return toolResult(s.dispatcher.Dispatch(ctx, gateway.Command{Name: name, Args: args})), nil
	}
}

// decodeArguments keeps numbers as json.Number so integer arguments can be
// told apart from fractional ones.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("[server decodeArguments] %w", err)
	}
	return args, nil
}

func toolResult(res gateway.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: res.Text}},
		IsError: res.IsFailure(),
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "*", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("Registered route")
	}
}
