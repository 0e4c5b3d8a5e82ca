package gateway

// Kind classifies the outcome of a dispatch.
type Kind string

const (
	KindSuccess          Kind = "success"
	KindNotFound         Kind = "not_found"
	KindInvalidArgument  Kind = "invalid_argument"
	KindUpstreamRejected Kind = "upstream_rejected"
	KindUnavailable      Kind = "unavailable"
	KindAuth             Kind = "auth_error"
)

// Result is the normalized response of one dispatch. Text is always the
// human-readable string returned to the caller.
type Result struct {
	Kind Kind
	Text string
}

func Success(text string) Result {
	return Result{Kind: KindSuccess, Text: text}
}

func NotFound(text string) Result {
	return Result{Kind: KindNotFound, Text: text}
}

func Failure(kind Kind, text string) Result {
	return Result{Kind: kind, Text: text}
}

// IsFailure reports whether the result is one of the failure kinds.
// NotFound is a legitimate empty answer, not a failure.
func (r Result) IsFailure() bool {
	return r.Kind != KindSuccess && r.Kind != KindNotFound
}
