package domain

import "errors"

var (
	// ErrTokenExpired is returned when an API token is past its expiry
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken is returned when an API token fails verification
	ErrInvalidToken = errors.New("invalid token")
)

// TokenClaims represents the operator token payload for the operations API
type TokenClaims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
