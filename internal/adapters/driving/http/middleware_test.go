package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

type mockAuthority struct {
	parseFn func(token string) (*domain.TokenClaims, error)
}

func (m *mockAuthority) GenerateToken(claims *domain.TokenClaims) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockAuthority) ParseToken(token string) (*domain.TokenClaims, error) {
	if m.parseFn != nil {
		return m.parseFn(token)
	}
	return nil, domain.ErrInvalidToken
}

func validTokenAuthority() *mockAuthority {
	return &mockAuthority{
		parseFn: func(token string) (*domain.TokenClaims, error) {
			switch token {
			case "valid-token":
				return &domain.TokenClaims{Subject: "ops"}, nil
			case "expired-token":
				return nil, domain.ErrTokenExpired
			}
			return nil, domain.ErrInvalidToken
		},
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid bearer token",
			header:   "Bearer abc123",
			expected: "abc123",
		},
		{
			name:     "bearer with extra spaces",
			header:   "Bearer   token-with-spaces   ",
			expected: "token-with-spaces",
		},
		{
			name:     "lowercase bearer",
			header:   "bearer token123",
			expected: "token123",
		},
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "no bearer prefix",
			header:   "token123",
			expected: "",
		},
		{
			name:     "basic auth",
			header:   "Basic dXNlcjpwYXNz",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			result := extractBearerToken(req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	middleware := NewAuthMiddleware(validTokenAuthority(), nil)

	var seen *domain.TokenClaims
	handler := middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer valid-token", http.StatusOK},
		{"missing token", "", http.StatusUnauthorized},
		{"expired token", "Bearer expired-token", http.StatusUnauthorized},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/api/v1/sync/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
			if tt.status == http.StatusOK && (seen == nil || seen.Subject != "ops") {
				t.Errorf("expected claims in context, got %+v", seen)
			}
		})
	}
}

func TestAuthenticate_NoAuthority(t *testing.T) {
	middleware := NewAuthMiddleware(nil, nil)

	handler := middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected requests to pass without an authority, got %d", rr.Code)
	}
}

func TestGetClaims(t *testing.T) {
	if GetClaims(context.TODO()) != nil {
		t.Error("expected nil for empty context")
	}

	claims := &domain.TokenClaims{Subject: "ops"}
	ctx := context.WithValue(context.Background(), claimsContextKey, claims)
	if got := GetClaims(ctx); got != claims {
		t.Errorf("expected claims to be returned, got %+v", got)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	auth := NewAuthMiddleware(validTokenAuthority(), nil)
	inner := auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("OK"))
	}))
	handler := RequestIDMiddleware(NewLoggingMiddleware(logger).Handler(inner))

	req := httptest.NewRequest("GET", "/api/v1/sync/status", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	req.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rr.Code)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "INFO" || line["request_id"] != "req-42" || line["subject"] != "ops" {
		t.Errorf("unexpected log line: %v", line)
	}
	if line["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418 in log, got %v", line["status"])
	}
}

func TestLoggingMiddleware_HealthChecksAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := NewLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	if buf.Len() != 0 {
		t.Errorf("expected health check to be logged below info, got %q", buf.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"kept", "abc-123", true},
		{"minted when missing", "", false},
		{"minted when too long", strings.Repeat("x", 65), false},
		{"minted when it has spaces", "a b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("header %q and context %q must match", got, seen)
			}
			if tt.keep && got != tt.inbound {
				t.Errorf("expected inbound id to be kept, got %q", got)
			}
			if !tt.keep && got == tt.inbound {
				t.Errorf("expected a new id, got %q", got)
			}
		})
	}

	if RequestID(context.Background()) != "" {
		t.Error("expected empty id outside a request")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	middleware := NewRecoveryMiddleware(nil)

	// Handler that panics
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	// Should not panic
	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	middleware := NewCORSMiddleware([]string{"https://example.com"})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Errorf("expected CORS origin header to be set")
	}

	if rr.Header().Get("Access-Control-Expose-Headers") != RequestIDHeader {
		t.Errorf("expected %s to be exposed", RequestIDHeader)
	}

	// Preflight
	req = httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr = httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for preflight, got %d", rr.Code)
	}

	// Disallowed origin
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://evil.com")
	rr = httptest.NewRecorder()

	middleware.Handler(handler).ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS header for disallowed origin")
	}
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("expected first status 404 to stick, got %d", rw.statusCode)
	}
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected underlying status 404, got %d", rr.Code)
	}
}
