// Package searcherr defines the typed error kinds the search engine and
// index builder can raise, and the propagation policy around them.
package searcherr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to abort, degrade,
// or surface a recoverable error to the caller.
type Kind int

const (
	// Unknown is the zero value; never constructed deliberately.
	Unknown Kind = iota
	// EmbeddingUnavailable is a network or HTTP failure from the embedding endpoint.
	EmbeddingUnavailable
	// EmbeddingMalformed is a response missing expected fields after the payload-shape fallback.
	EmbeddingMalformed
	// DimensionMismatch is a vector whose length differs from the established dimension.
	DimensionMismatch
	// IndexCorrupt is an artifact file missing or unreadable at startup.
	IndexCorrupt
	// SchemaMismatch is a CSV missing required columns, or a relational query failing.
	SchemaMismatch
	// FacetUnavailable is a relational failure during query-path facet resolution.
	FacetUnavailable
	// InvalidRequest is an empty query or a non-numeric k.
	InvalidRequest
)

func (k Kind) String() string {
	switch k {
	case EmbeddingUnavailable:
		return "EmbeddingUnavailable"
	case EmbeddingMalformed:
		return "EmbeddingMalformed"
	case DimensionMismatch:
		return "DimensionMismatch"
	case IndexCorrupt:
		return "IndexCorrupt"
	case SchemaMismatch:
		return "SchemaMismatch"
	case FacetUnavailable:
		return "FacetUnavailable"
	case InvalidRequest:
		return "InvalidRequest"
	default:
		return "Unknown"
	}
}

// Error is a typed error carrying a Kind plus a wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind with a message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an Error of the given kind, wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else Unknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

// Recoverable reports whether an error of this kind should degrade a
// request rather than abort the whole process. Build-time callers should
// ignore this and always treat failures as fatal, per the propagation
// policy: build-time errors never degrade.
func Recoverable(kind Kind) bool {
	switch kind {
	case EmbeddingUnavailable, EmbeddingMalformed, FacetUnavailable, InvalidRequest:
		return true
	case DimensionMismatch, IndexCorrupt, SchemaMismatch:
		return false
	default:
		return false
	}
}
