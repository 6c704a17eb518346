package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session lifetimes. Guests get a short-lived session that is silently
// re-issued; registered users keep theirs for a quarter.
const (
	GuestSessionTTL      = 30 * 24 * time.Hour
	RegisteredSessionTTL = 90 * 24 * time.Hour
)

// Session is the local record of who is using this device, until when,
// and with what entitlements. Values are immutable: lifecycle
// operations produce a replacement rather than mutating in place.
//
// Capability checks are always derived from (Role, IsPremium, Trial)
// via Can; there is no stored permission map that could drift.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`

	IsPremium     bool       `json:"is_premium"`
	PremiumExpiry *time.Time `json:"premium_expiry,omitempty"`

	// HasAudioAccess is fixed at session-creation time as
	// IsPremium || Role.IsAdmin(), then re-derived only when the role
	// itself changes. Admins keep audio access without premium.
	HasAudioAccess bool `json:"has_audio_access"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	DeviceID   string     `json:"device_id"`
	DeviceType DeviceType `json:"device_type"`

	Trial *Trial `json:"trial,omitempty"`
}

// NewGuestSession synthesizes a fresh anonymous session for the device.
func NewGuestSession(deviceID string, deviceType DeviceType, now time.Time) Session {
	return Session{
		ID:         uuid.NewString(),
		Role:       RoleGuest,
		CreatedAt:  now,
		ExpiresAt:  now.Add(GuestSessionTTL),
		DeviceID:   deviceID,
		DeviceType: deviceType,
	}
}

// RegisteredSessionParams groups inputs for NewRegisteredSession.
type RegisteredSessionParams struct {
	UserID        string
	Email         string
	Role          Role
	IsPremium     bool
	PremiumExpiry *time.Time
	DeviceID      string
	DeviceType    DeviceType
}

// NewRegisteredSession creates a session for a signed-in user.
// Audio access is fixed here: premium users and admins get it.
func NewRegisteredSession(p RegisteredSessionParams, now time.Time) Session {
	role := p.Role
	if !role.Valid() {
		role = RoleUser
	}
	return Session{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		Email:          p.Email,
		Role:           role,
		IsPremium:      p.IsPremium,
		PremiumExpiry:  p.PremiumExpiry,
		HasAudioAccess: p.IsPremium || role.IsAdmin(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(RegisteredSessionTTL),
		DeviceID:       p.DeviceID,
		DeviceType:     p.DeviceType,
	}
}

// IsGuest returns true for anonymous sessions.
func (s Session) IsGuest() bool {
	return s.Role == RoleGuest || s.UserID == ""
}

// Expired returns true once now reaches the session expiry. Expired
// sessions must never be treated as valid; callers fall back to a
// fresh guest session.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PremiumActive returns true when the premium flag is set and the
// premium expiry, if any, has not passed. An absent expiry means the
// grant is indefinite.
func (s Session) PremiumActive(now time.Time) bool {
	return s.IsPremium && !s.premiumExpired(now)
}

// CanAccessAudio returns true when audio access was granted at
// creation and any premium expiry is still in the future. Guests never
// have audio access regardless of other fields.
func (s Session) CanAccessAudio(now time.Time) bool {
	if s.Role == RoleGuest {
		return false
	}
	return s.HasAudioAccess && !s.premiumExpired(now)
}

// premiumExpired reports whether a premium expiry exists and has
// passed. A nil expiry never expires.
func (s Session) premiumExpired(now time.Time) bool {
	return s.PremiumExpiry != nil && !now.Before(*s.PremiumExpiry)
}

// HasActiveTrial returns true while a trial on the session is running.
// Expiry is checked lazily on every read.
func (s Session) HasActiveTrial(now time.Time) bool {
	return s.Trial != nil && s.Trial.Active(now)
}

// HasTrialAccess returns true when either an active trial or an active
// premium grant entitles the session to premium content.
func (s Session) HasTrialAccess(now time.Time) bool {
	return s.HasActiveTrial(now) || s.PremiumActive(now)
}

// Can evaluates a capability against the session at the given instant.
// Unknown capabilities are denied.
func (s Session) Can(c Capability, now time.Time) bool {
	switch c {
	case CapAccessAudio:
		return s.CanAccessAudio(now)
	case CapSaveFavorites:
		return !s.IsGuest()
	case CapAccessPremiumContent:
		return s.HasTrialAccess(now)
	case CapManageSongs, CapManageAnnouncements:
		return s.Role.IsAdmin()
	case CapManageUsers:
		return s.Role == RoleSuperAdmin
	default:
		return false
	}
}

// CapabilityMap materializes all capabilities for transport to callers
// that want the full permission set at once. It is always recomputed,
// never stored.
func (s Session) CapabilityMap(now time.Time) map[Capability]bool {
	caps := make(map[Capability]bool, len(Capabilities()))
	for _, c := range Capabilities() {
		caps[c] = s.Can(c, now)
	}
	return caps
}

// WithPremium returns a copy with the premium grant applied. A guest
// session is promoted to the user role: a paying device is no longer
// anonymous-tier even before sign-in.
func (s Session) WithPremium(expiry *time.Time) Session {
	next := s
	next.IsPremium = true
	next.PremiumExpiry = expiry
	if next.Role == RoleGuest {
		next.Role = RoleUser
	}
	next.HasAudioAccess = true
	return next
}

// WithRole returns a copy with the role replaced and audio access
// re-derived, so a demotion revokes admin-sourced audio access.
func (s Session) WithRole(role Role) Session {
	next := s
	if !role.Valid() {
		role = RoleUser
	}
	next.Role = role
	next.HasAudioAccess = next.IsPremium || role.IsAdmin()
	return next
}

// WithTrial returns a copy carrying the activated trial.
func (s Session) WithTrial(t Trial) Session {
	next := s
	next.Trial = &t
	return next
}
