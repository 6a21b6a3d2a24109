package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter("test-secret")
	if adapter == nil {
		t.Fatal("expected non-nil adapter")
	}
	if string(adapter.secret) != "test-secret" {
		t.Error("expected secret to be set")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	adapter := NewAdapter("secret")

	now := time.Now()
	claims := &domain.TokenClaims{
		Subject:   "ops",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}

	token, err := adapter.GenerateToken(claims)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected a three-part JWT, got %q", token)
	}

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if parsed.Subject != "ops" {
		t.Errorf("expected subject ops, got %q", parsed.Subject)
	}
	if parsed.ExpiresAt != claims.ExpiresAt {
		t.Errorf("expected exp %d, got %d", claims.ExpiresAt, parsed.ExpiresAt)
	}
	if parsed.IssuedAt != claims.IssuedAt {
		t.Errorf("expected iat %d, got %d", claims.IssuedAt, parsed.IssuedAt)
	}
}

func TestIssueToken(t *testing.T) {
	adapter := NewAdapter("secret")

	token, err := adapter.IssueToken("cli", time.Minute)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if parsed.Subject != "cli" {
		t.Errorf("expected subject cli, got %q", parsed.Subject)
	}
}

func TestParseToken_Expired(t *testing.T) {
	adapter := NewAdapter("secret")

	past := time.Now().Add(-2 * time.Hour)
	token, err := adapter.GenerateToken(&domain.TokenClaims{
		Subject:   "ops",
		IssuedAt:  past.Unix(),
		ExpiresAt: past.Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	_, err = adapter.ParseToken(token)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := NewAdapter("secret-a").IssueToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	_, err = NewAdapter("secret-b").ParseToken(token)
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	adapter := NewAdapter("secret")

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "ops"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	if _, err := NewAdapter("secret").ParseToken(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
