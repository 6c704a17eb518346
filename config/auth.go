package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOIDC uses OIDC/OAuth2 for authentication.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, mock)", v)
	}
}

// OIDCConfig contains OIDC/OAuth2 configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"sessiond"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"sessiond"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID string `env:"USER_ID" envDefault:"dev-user"`
	Email  string `env:"EMAIL"   envDefault:"dev@example.com"`
}

// DirectoryConfig tunes role directory lookups and caching.
type DirectoryConfig struct {
	// CacheTTL is how long a resolved role stays cached before the
	// directory is consulted again.
	CacheTTL time.Duration `env:"ROLE_CACHE_TTL" envDefault:"2m"`

	// LookupTimeout bounds each remote directory call.
	LookupTimeout time.Duration `env:"ROLE_LOOKUP_TIMEOUT" envDefault:"10s"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Directory configuration for role lookups.
	Directory DirectoryConfig

	// SuperAdminEmails is the static fallback allowlist of superadmin
	// emails, used when the directory allowlist is unreachable.
	SuperAdminEmails []string `env:"SUPERADMIN_EMAILS" envSeparator:";"`

	// AdminEmails is the static fallback allowlist of admin emails.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:";"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Directory.CacheTTL <= 0 {
		a.Directory.CacheTTL = 2 * time.Minute
	}
	if a.Directory.LookupTimeout <= 0 {
		a.Directory.LookupTimeout = 10 * time.Second
	}
}
