package fusion

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

const defaultAssertionTTL = 5 * time.Minute

// authorizer produces the Authorization header for the configured auth type.
type authorizer struct {
	creds domain.Credentials
	now   func() time.Time

	mu        sync.Mutex
	minted    string
	mintedExp time.Time
}

func newAuthorizer(creds domain.Credentials, now func() time.Time) *authorizer {
	if now == nil {
		now = time.Now
	}
	return &authorizer{creds: creds, now: now}
}

// basicAuthHeader returns the value of a Basic Authorization header.
func basicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// header returns the Authorization header value, or an authentication
// CallError when no credentials are usable. No request is sent in that case.
func (a *authorizer) header(op string) (string, error) {
	switch a.creds.AuthType {
	case domain.AuthTypeBasic:
		if a.creds.Username == "" || a.creds.Password == "" {
			return "", domain.NewAuthError(op, 0, "basic auth requires username and password")
		}
		return basicAuthHeader(a.creds.Username, a.creds.Password), nil

	case domain.AuthTypeOAuth:
		if a.creds.AccessToken == "" {
			return "", domain.NewAuthError(op, 0, "oauth access token is required")
		}
		return "Bearer " + a.creds.AccessToken, nil

	case domain.AuthTypeJWT:
		if a.creds.AccessToken != "" {
			return "Bearer " + a.creds.AccessToken, nil
		}
		if !a.creds.JWT.CanSign() {
			return "", domain.NewAuthError(op, 0, "jwt bearer token is required")
		}
		token, err := a.assertion()
		if err != nil {
			return "", domain.NewAuthError(op, 0, fmt.Sprintf("sign jwt assertion: %v", err))
		}
		return "Bearer " + token, nil

	default:
		return "", domain.NewAuthError(op, 0, fmt.Sprintf("unsupported auth type %q", a.creds.AuthType))
	}
}

// assertion returns a cached signed JWT, minting a new one shortly before expiry.
func (a *authorizer) assertion() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.minted != "" && now.Add(30*time.Second).Before(a.mintedExp) {
		return a.minted, nil
	}

	cfg := a.creds.JWT
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultAssertionTTL
	}
	subject := cfg.Subject
	if subject == "" {
		subject = a.creds.Username
	}

	claims := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	var signed string
	if strings.Contains(cfg.SigningKey, "PRIVATE KEY") {
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.SigningKey))
		if err != nil {
			return "", fmt.Errorf("parse rsa key: %w", err)
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		if err != nil {
			return "", err
		}
		signed = s
	} else {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SigningKey))
		if err != nil {
			return "", err
		}
		signed = s
	}

	a.minted = signed
	a.mintedExp = now.Add(ttl)
	return signed, nil
}
