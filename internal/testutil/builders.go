// Package testutil provides testing utilities and helpers for the sessiond service.
package testutil

import (
	"time"

	"github.com/google/uuid"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
)

// UserRecordBuilder provides a fluent interface for building directory
// user records for tests.
type UserRecordBuilder struct {
	rec domainauth.UserRecord
}

// NewUserRecord creates a UserRecordBuilder with sensible defaults.
func NewUserRecord() *UserRecordBuilder {
	now := time.Now().UTC().Truncate(time.Second)
	return &UserRecordBuilder{
		rec: domainauth.UserRecord{
			ID:        uuid.NewString(),
			Email:     "user@example.com",
			Role:      string(domainauth.RoleUser),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// WithID sets the user id.
func (b *UserRecordBuilder) WithID(id string) *UserRecordBuilder {
	b.rec.ID = id
	return b
}

// WithEmail sets the email address.
func (b *UserRecordBuilder) WithEmail(email string) *UserRecordBuilder {
	b.rec.Email = email
	return b
}

// WithDisplayName sets the display name.
func (b *UserRecordBuilder) WithDisplayName(name string) *UserRecordBuilder {
	b.rec.DisplayName = name
	return b
}

// WithRole sets the stored role string.
func (b *UserRecordBuilder) WithRole(role domainauth.Role) *UserRecordBuilder {
	b.rec.Role = string(role)
	return b
}

// WithPremium marks the record premium with an optional expiry.
func (b *UserRecordBuilder) WithPremium(expiry *time.Time) *UserRecordBuilder {
	b.rec.IsPremium = true
	b.rec.PremiumExpiry = expiry
	return b
}

// Build returns the constructed record.
func (b *UserRecordBuilder) Build() domainauth.UserRecord {
	return b.rec
}

// SessionBuilder provides a fluent interface for building sessions in
// arbitrary states for tests.
type SessionBuilder struct {
	s domainauth.Session
}

// NewGuestSession creates a builder holding a fresh guest session
// anchored at now.
func NewGuestSession(now time.Time) *SessionBuilder {
	return &SessionBuilder{
		s: domainauth.NewGuestSession("device-"+uuid.NewString()[:8], domainauth.DevicePhone, now),
	}
}

// NewRegisteredSession creates a builder holding a registered session
// for the given user anchored at now.
func NewRegisteredSession(userID, email string, now time.Time) *SessionBuilder {
	return &SessionBuilder{
		s: domainauth.NewRegisteredSession(domainauth.RegisteredSessionParams{
			UserID:     userID,
			Email:      email,
			Role:       domainauth.RoleUser,
			DeviceID:   "device-" + uuid.NewString()[:8],
			DeviceType: domainauth.DevicePhone,
		}, now),
	}
}

// WithRole replaces the role and re-derives audio access.
func (b *SessionBuilder) WithRole(role domainauth.Role) *SessionBuilder {
	b.s = b.s.WithRole(role)
	return b
}

// WithPremium applies a premium grant with an optional expiry.
func (b *SessionBuilder) WithPremium(expiry *time.Time) *SessionBuilder {
	b.s = b.s.WithPremium(expiry)
	return b
}

// WithTrial attaches an active trial.
func (b *SessionBuilder) WithTrial(t domainauth.Trial) *SessionBuilder {
	b.s = b.s.WithTrial(t)
	return b
}

// WithDevice overrides the device identity.
func (b *SessionBuilder) WithDevice(id string, dt domainauth.DeviceType) *SessionBuilder {
	b.s.DeviceID = id
	b.s.DeviceType = dt
	return b
}

// ExpiredAt forces the session expiry to the given instant.
func (b *SessionBuilder) ExpiredAt(t time.Time) *SessionBuilder {
	b.s.ExpiresAt = t
	return b
}

// Build returns the constructed session.
func (b *SessionBuilder) Build() domainauth.Session {
	return b.s
}

// DeviceSessionAt builds a limiter record created at the given instant
// with a 90 day expiry, matching registered-session lifetimes.
func DeviceSessionAt(deviceID string, dt domainauth.DeviceType, createdAt time.Time) domainauth.DeviceSession {
	return domainauth.DeviceSession{
		DeviceID:   deviceID,
		DeviceType: dt,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(domainauth.RegisteredSessionTTL),
	}
}
