package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse indicates the query text could not be translated into a
	// structured filter.
	ErrParse = errors.New("query parse error")

	// ErrNoShards indicates a session was requested without any account.
	ErrNoShards = errors.New("at least one account is required")

	// ErrSearchUnavailable indicates the local query executor is not configured.
	ErrSearchUnavailable = errors.New("search executor unavailable")

	// Session Errors.

	// ErrSessionStarted indicates Start was called on a running session.
	ErrSessionStarted = errors.New("search session already started")

	// ErrSessionEnded indicates an operation on a session after teardown.
	ErrSessionEnded = errors.New("search session ended")

	// Stream Errors.

	// ErrStreamClosed indicates the streaming connection has been closed.
	ErrStreamClosed = errors.New("stream closed")

	// ErrStreamRejected indicates the server refused the streaming handshake.
	ErrStreamRejected = errors.New("stream rejected")
)

// ParseError describes why a query could not be translated.
type ParseError struct {
	// Token is the offending input fragment.
	Token string

	// Pos is the token index within the query.
	Pos int

	// Reason explains the failure.
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q at token %d: %s", e.Token, e.Pos, e.Reason)
}

// Unwrap allows errors.Is(err, ErrParse).
func (e *ParseError) Unwrap() error {
	return ErrParse
}
