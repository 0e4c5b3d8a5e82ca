package config

import "strings"

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	transportVar      = "MCP_TRANSPORT"
	httpAddrVar       = "MCP_HTTP_ADDR"
	allowedOriginsVar = "MCP_ALLOWED_ORIGINS"
)

type TransportConfig interface {
	GetTransport() string
	GetHTTPAddr() string
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type Transport struct{}

var _ TransportConfig = Transport{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func (Transport) GetTransport() string {
	return strings.ToLower(GetEnv(transportVar, TransportStdio))
}

// GetHTTPAddr defaults to a loopback address; the HTTP transport has no
// authentication of its own.
func (Transport) GetHTTPAddr() string {
	return GetEnv(httpAddrVar, "localhost:8081")
}

func (Transport) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range strings.Split(GetEnv(allowedOriginsVar, ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}

func (Transport) GetAllowedMethods() string {
	return "GET, POST, DELETE"
}

func (Transport) GetAllowedHeaders() string {
	return "Content-Type, Authorization, Mcp-Session-Id, Mcp-Protocol-Version"
}
