// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package restcall

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures raised while validating and processing calls.
// Orchestrators decide between retrying and giving up based on the kind.
type ErrorKind int

const (
	// KindMalformedSpec reports a rule or translation spec with an unsupported shape.
	KindMalformedSpec ErrorKind = iota + 1
	// KindPathNotFound reports a rule path that does not exist in the response.
	KindPathNotFound
	// KindRecoverableResponse reports a response value that did not meet an expectation.
	KindRecoverableResponse
	// KindRecoverableConnection reports a connection error with retry_on_connection_error set.
	KindRecoverableConnection
	// KindRecoverableStatus reports a status code listed in recoverable_codes.
	KindRecoverableStatus
	// KindNonRecoverable reports a response value matching a nonrecoverable_response rule.
	KindNonRecoverable
	// KindUnsupportedFormat reports a response_format outside json/xml/text/raw/auto.
	KindUnsupportedFormat
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedSpec:
		return "malformed_spec"
	case KindPathNotFound:
		return "path_not_found"
	case KindRecoverableResponse:
		return "recoverable_response"
	case KindRecoverableConnection:
		return "recoverable_connection"
	case KindRecoverableStatus:
		return "recoverable_status"
	case KindNonRecoverable:
		return "nonrecoverable"
	case KindUnsupportedFormat:
		return "unsupported_format"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Recoverable reports whether the kind signals that the operation may be retried.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindRecoverableResponse, KindRecoverableConnection, KindRecoverableStatus:
		return true
	}
	return false
}

// Error is the typed failure returned by the checker, translator, response
// processor and sequencer.
type Error struct {
	Kind    ErrorKind
	Message string
	// StatusCode and Header are set for KindRecoverableStatus.
	StatusCode int
	Header     http.Header
	// Err is the underlying cause, when there is one.
	Err error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRecoverable reports whether err asks the orchestrator to try again.
func IsRecoverable(err error) bool {
	return KindOf(err).Recoverable()
}

// IsNonRecoverable reports whether err matched a nonrecoverable_response rule.
func IsNonRecoverable(err error) bool {
	return KindOf(err) == KindNonRecoverable
}

// ConnectionError wraps a transport failure for the last host tried.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string { return e.Err.Error() }

func (e *ConnectionError) Unwrap() error { return e.Err }

// HTTPStatusError is returned for non-2xx responses that were not declared recoverable.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Header     http.Header
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%d %s for url: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// SequenceError carries the progress made before a call sequence failed.
type SequenceError struct {
	// Index is the zero-based position of the failing call.
	Index            int
	Calls            []map[string]any
	ResultProperties Properties
	Err              error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("rest call #%d: %v", e.Index+1, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }
