package domain

import (
	"fmt"
	"strings"
	"time"
)

// AuthType defines how to authenticate with the Fusion REST API
type AuthType string

const (
	AuthTypeBasic AuthType = "basic"
	AuthTypeOAuth AuthType = "oauth"
	AuthTypeJWT   AuthType = "jwt"
)

// IsValid reports whether the auth type is one of the supported variants.
func (a AuthType) IsValid() bool {
	switch a {
	case AuthTypeBasic, AuthTypeOAuth, AuthTypeJWT:
		return true
	}
	return false
}

// Credentials holds auth material for the source ERP system.
// It is built once per run from configuration and never mutated afterwards.
type Credentials struct {
	InstanceURL string   `json:"instance_url" yaml:"instance_url"`
	AuthType    AuthType `json:"auth_type" yaml:"auth_type"`

	// Basic Auth
	Username string `json:"username,omitempty" yaml:"username"`
	Password string `json:"-" yaml:"password"` // Never serialize

	// OAuth client
	ClientID     string `json:"client_id,omitempty" yaml:"client_id"`
	ClientSecret string `json:"-" yaml:"client_secret"` // Never serialize

	// AccessToken is the bearer token for oauth and jwt.
	AccessToken string `json:"-" yaml:"access_token"` // Never serialize

	// JWT assertion settings, used to mint a bearer token when AccessToken is empty.
	JWT JWTAssertion `json:"jwt" yaml:"jwt"`
}

// JWTAssertion configures a locally signed JWT bearer token.
type JWTAssertion struct {
	Issuer   string `json:"issuer,omitempty" yaml:"issuer"`
	Subject  string `json:"subject,omitempty" yaml:"subject"`
	Audience string `json:"audience,omitempty" yaml:"audience"`
	// SigningKey is either a PEM encoded RSA private key (RS256) or a shared secret (HS256).
	SigningKey string        `json:"-" yaml:"signing_key"` // Never serialize
	TTL        time.Duration `json:"ttl,omitempty" yaml:"ttl"`
}

// CanSign reports whether enough material is present to mint a token.
func (j JWTAssertion) CanSign() bool {
	return j.SigningKey != "" && j.Issuer != ""
}

// Normalize strips the trailing slash from the instance URL and lower-cases the auth type.
func (c *Credentials) Normalize() {
	c.InstanceURL = strings.TrimRight(strings.TrimSpace(c.InstanceURL), "/")
	c.AuthType = AuthType(strings.ToLower(strings.TrimSpace(string(c.AuthType))))
	if c.AuthType == "" {
		c.AuthType = AuthTypeBasic
	}
}

// Validate checks that the fields required by the auth type are present.
// Bearer tokens are not required here: a missing token is reported when a
// call is attempted so that the failure surfaces as an authentication error.
func (c *Credentials) Validate() error {
	if c.InstanceURL == "" {
		return fmt.Errorf("%w: instance url is required", ErrInvalidConfig)
	}
	if strings.HasSuffix(c.InstanceURL, "/") {
		return fmt.Errorf("%w: instance url must not end with /", ErrInvalidConfig)
	}
	switch c.AuthType {
	case AuthTypeBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("%w: basic auth requires username and password", ErrInvalidConfig)
		}
	case AuthTypeOAuth:
		if c.ClientID == "" && c.AccessToken == "" {
			return fmt.Errorf("%w: oauth requires client id or access token", ErrInvalidConfig)
		}
	case AuthTypeJWT:
		if c.AccessToken == "" && c.JWT.SigningKey != "" && c.JWT.Issuer == "" {
			return fmt.Errorf("%w: jwt signing requires an issuer", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported auth type %q", ErrInvalidConfig, c.AuthType)
	}
	return nil
}

// Summary returns a loggable view without secrets.
func (c *Credentials) Summary() map[string]any {
	return map[string]any{
		"instance_url": c.InstanceURL,
		"auth_type":    c.AuthType,
		"username":     c.Username,
		"has_token":    c.AccessToken != "",
		"can_sign_jwt": c.JWT.CanSign(),
	}
}

// DefaultBaseAPIPath is the Fusion REST resource root.
const DefaultBaseAPIPath = "/fscmRestApi/resources/11.13.18.05/"

// EndpointConfig maps resources to relative paths under BaseAPIPath.
type EndpointConfig struct {
	BaseAPIPath string              `json:"base_api_path" yaml:"base_api_path"`
	Resources   map[Resource]string `json:"resources" yaml:"resources"`
}

// DefaultEndpointConfig returns the standard Fusion GL resource paths.
func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		BaseAPIPath: DefaultBaseAPIPath,
		Resources: map[Resource]string{
			ResourceJournalBatches:  "journalBatches",
			ResourceJournalHeaders:  "journalHeaders",
			ResourceJournalLines:    "journalLines",
			ResourceChartOfAccounts: "chartOfAccounts",
			ResourceLedgers:         "ledgers",
			ResourceJournalEntries:  "journalEntries",
		},
	}
}

// Normalize ensures BaseAPIPath starts and ends with "/" and fills missing resource paths.
func (e *EndpointConfig) Normalize() {
	if e.BaseAPIPath == "" {
		e.BaseAPIPath = DefaultBaseAPIPath
	}
	if !strings.HasPrefix(e.BaseAPIPath, "/") {
		e.BaseAPIPath = "/" + e.BaseAPIPath
	}
	if !strings.HasSuffix(e.BaseAPIPath, "/") {
		e.BaseAPIPath += "/"
	}
	defaults := DefaultEndpointConfig().Resources
	if e.Resources == nil {
		e.Resources = make(map[Resource]string, len(defaults))
	}
	for r, p := range defaults {
		if e.Resources[r] == "" {
			e.Resources[r] = p
		}
	}
}

// Path returns the relative path for a resource, without leading slash.
func (e EndpointConfig) Path(r Resource) (string, error) {
	p, ok := e.Resources[r]
	if !ok || p == "" {
		return "", fmt.Errorf("%w: no path configured for resource %q", ErrInvalidConfig, r)
	}
	return strings.TrimLeft(p, "/"), nil
}

// DestinationConfig holds the APEX REST endpoint and its credentials.
type DestinationConfig struct {
	BaseURL  string `json:"base_url" yaml:"base_url"`
	Username string `json:"username,omitempty" yaml:"username"`
	Password string `json:"-" yaml:"password"` // Never serialize
	Token    string `json:"-" yaml:"token"`    // Never serialize
}

// Normalize strips the trailing slash from the base URL.
func (d *DestinationConfig) Normalize() {
	d.BaseURL = strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")
}

// Validate checks the destination endpoint is usable.
func (d *DestinationConfig) Validate() error {
	if d.BaseURL == "" {
		return fmt.Errorf("%w: destination base url is required", ErrInvalidConfig)
	}
	return nil
}
