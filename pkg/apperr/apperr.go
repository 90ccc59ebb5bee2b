// Package apperr defines the error taxonomy shared by the reasoning loop,
// the backends and the front-ends, and the Japanese messages shown to users.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindConfiguration
	KindAuthentication
	KindRateLimit
	KindTimeout
	KindTool
	KindProtocolParse
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindTool:
		return "tool"
	case KindProtocolParse:
		return "protocol_parse"
	default:
		return "generic"
	}
}

// Error is a classified error. Op names the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.String() + " error"
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error from a message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrMissingCredential reports that no backend credential is available.
var ErrMissingCredential = New(KindConfiguration, "credential", "no API key configured")

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindGeneric when none is present.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindGeneric
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	authMarkers = []string{"api key", "api_key", "apikey", "401", "permission_denied", "unauthenticated", "invalid authentication"}
	rateMarkers = []string{"429", "quota", "rate limit", "ratelimit", "rate_limit", "resource_exhausted", "resource exhausted", "too many requests"}
	timeMarkers = []string{"timeout", "timed out", "deadline exceeded", "deadline_exceeded"}
)

// Classify maps a backend error onto the taxonomy. Errors that already carry
// a kind pass through unchanged. Matching is on the lower-cased message; the
// bare word "rate" is not a marker because it occurs inside "generate".
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, authMarkers):
		return &Error{Kind: KindAuthentication, Err: err}
	case containsAny(msg, rateMarkers):
		return &Error{Kind: KindRateLimit, Err: err}
	case containsAny(msg, timeMarkers):
		return &Error{Kind: KindTimeout, Err: err}
	default:
		return &Error{Kind: KindGeneric, Err: err}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
