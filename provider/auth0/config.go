package auth0

import (
	"fmt"
	"strings"
	"time"
)

const defaultRealm = "Username-Password-Authentication"

// Config holds the Auth0 tenant and application settings.
type Config struct {
	// Domain is the Auth0 tenant domain (e.g., "example.us.auth0.com").
	Domain string

	// ClientID is the application client ID.
	ClientID string

	// ClientSecret is the application client secret, required for
	// confidential clients.
	ClientSecret string

	// Realm is the database connection used for password sign-in and
	// signup. Default: "Username-Password-Authentication".
	Realm string

	// Audience overrides the audiences accepted on ID tokens.
	// Default: the client ID.
	Audience []string

	// Issuer overrides the default issuer URL (optional).
	// Default: "https://{Domain}/".
	Issuer string

	// CacheTTL is how long to cache JWKS keys.
	// Default: 5 minutes.
	CacheTTL time.Duration

	// Scope requested on token grants.
	// Default: "openid profile email offline_access".
	Scope string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(domain, clientID string) Config {
	return Config{
		Domain:   domain,
		ClientID: clientID,
		Realm:    defaultRealm,
		CacheTTL: 5 * time.Minute,
	}
}

func (c Config) realm() string {
	if c.Realm != "" {
		return c.Realm
	}
	return defaultRealm
}

func (c Config) scope() string {
	if c.Scope != "" {
		return c.Scope
	}
	return "openid profile email offline_access"
}

func (c Config) audiences() []string {
	if len(c.Audience) > 0 {
		return c.Audience
	}
	return []string{c.ClientID}
}

func (c Config) issuerURL() string {
	if c.Issuer != "" {
		return normalizeIssuer(c.Issuer)
	}

	domain := strings.TrimSpace(c.Domain)
	if domain == "" {
		return ""
	}

	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return normalizeIssuer(domain)
	}

	return fmt.Sprintf("https://%s/", strings.TrimSuffix(domain, "/"))
}

func normalizeIssuer(issuer string) string {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return issuer
	}
	if strings.HasSuffix(issuer, "/") {
		return issuer
	}
	return issuer + "/"
}
