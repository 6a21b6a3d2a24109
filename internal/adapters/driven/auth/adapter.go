package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
)

// Ensure Adapter implements TokenAuthority
var _ driven.TokenAuthority = (*Adapter)(nil)

// Adapter signs and verifies HS256 operator tokens with a shared secret
type Adapter struct {
	secret []byte
}

// NewAdapter creates a new auth adapter with the given API secret
func NewAdapter(secret string) *Adapter {
	return &Adapter{secret: []byte(secret)}
}

// IssueToken is a convenience for minting a token valid for ttl.
func (a *Adapter) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	return a.GenerateToken(&domain.TokenClaims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
}

// GenerateToken creates a signed JWT from domain claims
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	rc := jwt.RegisteredClaims{
		Subject:  claims.Subject,
		IssuedAt: jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
	}
	if claims.ExpiresAt > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, rc)
	return token.SignedString(a.secret)
}

// ParseToken validates a JWT and extracts domain claims.
// Expired tokens return domain.ErrTokenExpired; everything else domain.ErrInvalidToken.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	out := &domain.TokenClaims{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}
