// Package odataerr defines the error values returned across the negotiation
// and serialization boundary.
//
// Nothing in this module panics or exits on bad input: parse problems,
// negotiation failures and sink failures are all reported as values of the
// types below so the transport layer can map them to protocol responses.
package odataerr

import (
	"fmt"
	"net/http"
	"strings"
)

// ParseError reports malformed media-type, locale or request input.
// The caller rejects the single value and continues with defaults.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// NewParseError returns a ParseError for input.
func NewParseError(input, reason string) *ParseError {
	return &ParseError{Input: input, Reason: reason}
}

// NegotiationError reports that none of the supported representations is
// acceptable to the client. It maps to 406 Not Acceptable.
type NegotiationError struct {
	Requested string
	Supported []string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("no acceptable content type for %q (supported: %s)",
		e.Requested, strings.Join(e.Supported, ", "))
}

// Status returns the HTTP status for the failure.
func (e *NegotiationError) Status() int { return http.StatusNotAcceptable }

// Kind classifies a SerializationError.
type Kind string

const (
	// KindCommon is an underlying sink (I/O) failure.
	KindCommon Kind = "COMMON"
	// KindMissingKey means a row lacks a value for a key property.
	KindMissingKey Kind = "MISSING_KEY"
	// KindIllegalKey means a key value cannot be rendered as a URI literal.
	KindIllegalKey Kind = "ILLEGAL_KEY"
)

// SerializationError wraps a failure while streaming a response body.
// The partially written output is invalid and must be discarded.
type SerializationError struct {
	Kind Kind
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Err == nil {
		return "serialization failed: " + string(e.Kind)
	}
	return fmt.Sprintf("serialization failed (%s): %v", e.Kind, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// NewSerializationError wraps err with kind.
func NewSerializationError(kind Kind, err error) *SerializationError {
	return &SerializationError{Kind: kind, Err: err}
}
