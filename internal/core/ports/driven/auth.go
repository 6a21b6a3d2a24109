package driven

import "github.com/custodia-labs/fusion-sync/internal/core/domain"

// TokenAuthority issues and verifies operator tokens for the operations API.
type TokenAuthority interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
