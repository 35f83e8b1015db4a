// Package relay holds the shared plumbing both MCP relays sit on: a
// typed error model for tool failures and the middleware that logs every
// tool invocation.
//
// Handlers return *relay.Error values internally; the error is rendered
// to a marker-prefixed string only at the MCP boundary, so callers and
// tests can still branch on the error kind.
package relay

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure.
type Kind int

const (
	// KindValidation means a required argument was missing or malformed.
	// No external call was attempted.
	KindValidation Kind = iota

	// KindRemoteAPI means the external API accepted the request and
	// returned a failure.
	KindRemoteAPI

	// KindNetwork means the external system could not be reached.
	KindNetwork

	// KindTimeout means a bounded wait gave up; the remote operation may
	// still be running.
	KindTimeout

	// KindInternal covers everything else, including recovered panics.
	KindInternal
)

// String returns the kind name used in log events.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRemoteAPI:
		return "remote_api"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error is a classified tool failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error. Handlers return it before any
// external call is made.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// RemoteAPI wraps a failure reported by the external API.
func RemoteAPI(msg string, err error) *Error {
	return &Error{Kind: KindRemoteAPI, Msg: msg, Err: err}
}

// Network wraps a connectivity failure.
func Network(msg string, err error) *Error {
	return &Error{Kind: KindNetwork, Msg: msg, Err: err}
}

// Timeoutf builds a timeout error for an exhausted poll loop.
func Timeoutf(format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps an unclassified failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}
