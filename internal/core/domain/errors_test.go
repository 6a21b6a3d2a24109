package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrInvalidConfig", ErrInvalidConfig, "invalid configuration"},
		{"ErrAuthRequired", ErrAuthRequired, "authentication required"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrSyncInProgress", ErrSyncInProgress, "sync already in progress"},
		{"ErrSyncNotRunning", ErrSyncNotRunning, "no sync running"},
		{"ErrCancelled", ErrCancelled, "sync cancelled"},
		{"ErrUnknownEntity", ErrUnknownEntity, "unknown entity type"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrInvalidToken", ErrInvalidToken, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrInvalidConfig,
		ErrAuthRequired,
		ErrUnauthorized,
		ErrSyncInProgress,
		ErrSyncNotRunning,
		ErrCancelled,
		ErrUnknownEntity,
		ErrTokenExpired,
		ErrInvalidToken,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors %v and %v should be distinct", err1, err2)
			}
		}
	}
}

func TestCallErrorConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *CallError
		kind   ErrorKind
		status int
		msg    string
	}{
		{
			name: "connection",
			err:  NewConnectionError("fetch journalBatches", io.ErrUnexpectedEOF),
			kind: KindConnection,
			msg:  "fetch journalBatches: CONNECTION_ERROR: unexpected EOF",
		},
		{
			name:   "auth with status",
			err:    NewAuthError("fetch ledgers", 401, "Unauthorized"),
			kind:   KindAuthentication,
			status: 401,
			msg:    "fetch ledgers: AUTHENTICATION_ERROR (401): Unauthorized",
		},
		{
			name:   "http",
			err:    NewHTTPError("save batches", 500, "Internal Server Error"),
			kind:   KindHTTP,
			status: 500,
			msg:    "save batches: HTTP_ERROR (500): Internal Server Error",
		},
		{
			name: "decode",
			err:  NewDecodeError("fetch journalLines", errors.New("invalid character '<'")),
			kind: KindDecode,
			msg:  "fetch journalLines: DECODE_ERROR: invalid character '<'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, tt.err.Kind)
			}
			if tt.err.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode)
			}
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestNewAuthError_MissingCredentials(t *testing.T) {
	err := NewAuthError("fetch journalBatches", 0, "no access token")

	if !errors.Is(err, ErrAuthRequired) {
		t.Error("expected pre-request auth error to wrap ErrAuthRequired")
	}
	if errors.Is(NewAuthError("fetch", 403, "Forbidden"), ErrAuthRequired) {
		t.Error("expected response auth error not to wrap ErrAuthRequired")
	}
}

func TestCallError_Unwrap(t *testing.T) {
	err := NewConnectionError("fetch", io.EOF)
	if !errors.Is(err, io.EOF) {
		t.Error("expected connection error to unwrap to its cause")
	}
}

func TestKindOfAndStatusCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("lines page 2: %w", NewHTTPError("fetch journalLines", 503, "Service Unavailable"))

	if KindOf(wrapped) != KindHTTP {
		t.Errorf("expected HTTP_ERROR through wrapping, got %q", KindOf(wrapped))
	}
	if StatusCodeOf(wrapped) != 503 {
		t.Errorf("expected 503 through wrapping, got %d", StatusCodeOf(wrapped))
	}

	plain := errors.New("boom")
	if KindOf(plain) != "" || StatusCodeOf(plain) != 0 {
		t.Error("expected zero values for non-call errors")
	}
}
