package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the configuration is incomplete or malformed
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAuthRequired indicates no usable credentials were available for a call
	ErrAuthRequired = errors.New("authentication required")

	// ErrUnauthorized indicates a bearer token presented to the API was rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSyncInProgress indicates a sync is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncNotRunning indicates there is no active sync to act on
	ErrSyncNotRunning = errors.New("no sync running")

	// ErrCancelled marks a run that stopped on a cancellation signal
	ErrCancelled = errors.New("sync cancelled")

	// ErrUnknownEntity indicates an entity type outside the GL chain
	ErrUnknownEntity = errors.New("unknown entity type")
)

// ErrorKind classifies failures at the remote-call boundary.
type ErrorKind string

const (
	// KindConnection is a transport failure with no HTTP response.
	KindConnection ErrorKind = "CONNECTION_ERROR"

	// KindAuthentication covers missing credentials and 401/403 responses.
	KindAuthentication ErrorKind = "AUTHENTICATION_ERROR"

	// KindHTTP is any other non-2xx response.
	KindHTTP ErrorKind = "HTTP_ERROR"

	// KindPartialSave means the destination reported failed > 0 for a page.
	KindPartialSave ErrorKind = "PARTIAL_SAVE"

	// KindDecode means a 2xx response body could not be decoded.
	KindDecode ErrorKind = "DECODE_ERROR"
)

// CallError is the error value returned by every SourceClient and
// DestinationClient operation.
type CallError struct {
	Kind       ErrorKind `json:"kind"`
	Op         string    `json:"op"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
	Err        error     `json:"-"`
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewConnectionError wraps a transport failure.
func NewConnectionError(op string, err error) *CallError {
	return &CallError{Kind: KindConnection, Op: op, Message: err.Error(), Err: err}
}

// NewAuthError builds an authentication failure. statusCode is 0 when the
// failure was detected before any request was sent.
func NewAuthError(op string, statusCode int, message string) *CallError {
	ce := &CallError{Kind: KindAuthentication, Op: op, StatusCode: statusCode, Message: message}
	if statusCode == 0 {
		ce.Err = ErrAuthRequired
	}
	return ce
}

// NewHTTPError builds an error for a non-2xx response that is not an auth failure.
func NewHTTPError(op string, statusCode int, reason string) *CallError {
	return &CallError{Kind: KindHTTP, Op: op, StatusCode: statusCode, Message: reason}
}

// NewDecodeError wraps a response body decoding failure.
func NewDecodeError(op string, err error) *CallError {
	return &CallError{Kind: KindDecode, Op: op, Message: err.Error(), Err: err}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not a CallError.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}
