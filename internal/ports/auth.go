package ports

// Package ports defines interfaces (hexagonal ports) for session and
// authorization behavior. Implementations live in internal/adapters and
// internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// IdentityProvider initiates and completes an authentication flow
// against an external IdP. The core only consumes the resulting
// Principal; the provider's wire protocol is opaque here.
type IdentityProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated principal.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Principal, error)
}

// LocalStore is the local key-value persistence collaborator. It holds
// the serialized session, the device id, and trial-history entries
// under fixed, versioned string keys.
type LocalStore interface {
	// Get returns the stored value and true, or ok=false when absent.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// DeviceSessionRepository tracks remote per-user device-session records
// for the concurrency limiter.
type DeviceSessionRepository interface {
	// List returns all device-session records for the user, including
	// expired ones; callers filter as needed.
	List(ctx context.Context, userID string) ([]domainauth.DeviceSession, error)
	Put(ctx context.Context, userID string, rec domainauth.DeviceSession) error
	Delete(ctx context.Context, userID, deviceID string) error
	// DeleteExpired removes lapsed records across all users and returns
	// the number removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// PremiumCacheRecord is the secondary premium marker kept per device
// for durability across local storage clears.
type PremiumCacheRecord struct {
	IsPremium     bool
	PremiumExpiry *int64 // unix millis; nil means indefinite
}

// PremiumCacheStore persists the per-device premium cache record.
type PremiumCacheStore interface {
	Save(ctx context.Context, deviceID string, rec PremiumCacheRecord) error
	// Load returns ok=false when no record exists for the device.
	Load(ctx context.Context, deviceID string) (rec PremiumCacheRecord, ok bool, err error)
	Delete(ctx context.Context, deviceID string) error
}

// UserDirectoryRepository reads and writes the remote user-record store
// backing the role directory.
type UserDirectoryRepository interface {
	// GetUser returns the record stored under users/{id}.
	// Returns an error satisfying errors.Is(err, ErrNotFound) from the
	// implementing package when the record is absent.
	GetUser(ctx context.Context, id string) (domainauth.UserRecord, error)
	UpsertUser(ctx context.Context, rec domainauth.UserRecord) error
	SetRole(ctx context.Context, id string, role domainauth.Role) error
	// Allowlist returns the managed admin email lists.
	Allowlist(ctx context.Context) (domainauth.AdminAllowlist, error)
}
