// Package checkerr defines the failure taxonomy of the check pipeline.
// Every component returns a tagged *Error instead of throwing opaque errors
// across package boundaries, so callers can branch on Kind and the monitor
// row can store a stable machine-readable last_error.
package checkerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindBlockedBySite     Kind = "blocked_by_site"
	KindFetchTimeout      Kind = "fetch_timeout"
	KindParseError        Kind = "parse_error"
	KindSelectorNotFound  Kind = "selector_not_found"
	KindSizeExceeded      Kind = "size_exceeded"
	KindInvalidURL        Kind = "invalid_url"
	KindUnsupportedScheme Kind = "unsupported_scheme"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the taxonomy kind from any error, defaulting unexpected
// errors to parse_error per the propagation policy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindParseError
}
