package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the command gateway
var (
	// ErrInvalidArgument marks bad command input; it never reaches upstream.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAuth marks a credential or consent failure. The session cannot
	// recover without a new bootstrap.
	ErrAuth = errors.New("authorization failed")

	// ErrScopeMismatch is returned at startup when the granted scopes do not
	// cover what the gateway dispatches.
	ErrScopeMismatch = fmt.Errorf("%w: scope mismatch", ErrAuth)

	// ErrMissingCredentials is returned at startup when the credential store is incomplete.
	ErrMissingCredentials = fmt.Errorf("%w: missing credentials", ErrAuth)

	// ErrUpstreamRejected marks a structured error returned by the upstream service.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrUnavailable marks network, timeout or transport failures.
	ErrUnavailable = errors.New("upstream unavailable")

	// Session cache errors
	ErrSessionNotFound = errors.New("session not found")

	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text
func New(text string) error {
	return errors.New(text)
}
