package spotify

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
)

// UpstreamError is a structured error returned by the Spotify Web API.
type UpstreamError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
	if e.Reason != "" {
		msg += ", reason: " + e.Reason
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return errors.ErrUpstreamRejected
}

// TransportError is a failure to complete the HTTP exchange at all
// (connection refused, DNS, timeout, unreadable body).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the cause and ErrUnavailable to errors.Is.
func (e *TransportError) Unwrap() []error {
	return []error{errors.ErrUnavailable, e.Err}
}

type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

func newUpstreamError(status int, env *errorEnvelope) *UpstreamError {
	e := &UpstreamError{StatusCode: status}
	if env != nil {
		e.Message = env.Error.Message
		e.Reason = env.Error.Reason
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
