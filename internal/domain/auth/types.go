package auth

// Package auth contains domain-level types for sessions, roles, and
// entitlements. It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and transport.
// Roles form a total privilege order: Guest < User < Admin < SuperAdmin.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// roleLevels defines the privilege order used by Level and AtLeast.
var roleLevels = map[Role]int{
	RoleGuest:      0,
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid returns true if the role is one of the defined constants.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the numeric privilege level of the role.
// Unknown roles map to the guest level.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast returns true if the role satisfies the required role in the
// privilege order. An Admin session satisfies a User requirement; a
// SuperAdmin requirement is satisfied only by SuperAdmin itself.
func (r Role) AtLeast(required Role) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return r.Level() >= required.Level()
}

// IsAdmin returns true for Admin and SuperAdmin roles.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ParseRole normalizes a stored role string. Unknown values map to
// RoleUser so a corrupted directory record never locks a user out or
// silently elevates them.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r
	}
	return RoleUser
}

// Principal represents the authenticated identity returned by the
// identity provider. Adapters map provider-specific claims into this
// shape; the core never talks to the provider directly.
type Principal struct {
	ID        string
	Email     string
	Anonymous bool
}

// DeviceType classifies the device a session belongs to. Concurrent
// premium sessions are capped per device class.
type DeviceType string

const (
	DevicePhone   DeviceType = "phone"
	DeviceTablet  DeviceType = "tablet"
	DeviceWeb     DeviceType = "web"
	DeviceUnknown DeviceType = "unknown"
)

// Valid returns true if the device type is one of the defined constants.
func (d DeviceType) Valid() bool {
	switch d {
	case DevicePhone, DeviceTablet, DeviceWeb, DeviceUnknown:
		return true
	default:
		return false
	}
}

// ParseDeviceType normalizes a stored device type string, mapping
// unknown values to DeviceUnknown.
func ParseDeviceType(s string) DeviceType {
	d := DeviceType(strings.ToLower(strings.TrimSpace(s)))
	if d.Valid() {
		return d
	}
	return DeviceUnknown
}

// DeviceClassifier reports the device class of the host environment.
// Implementations are supplied by the embedding application.
type DeviceClassifier interface {
	Classify() DeviceType
}

// DeviceSession is the remote per-user record used to cap concurrent
// premium sessions. It is not the same object as Session: it carries
// only what the limiter needs.
type DeviceSession struct {
	DeviceID   string     `json:"device_id"`
	DeviceType DeviceType `json:"device_type"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Expired returns true once the record's expiry has passed.
func (d DeviceSession) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// UserRecord is the directory record stored under users/{id}.
type UserRecord struct {
	ID            string     `db:"id"             json:"id"`
	Email         string     `db:"email"          json:"email"`
	DisplayName   string     `db:"display_name"   json:"display_name"`
	Role          string     `db:"role"           json:"role"`
	IsPremium     bool       `db:"is_premium"     json:"is_premium"`
	PremiumExpiry *time.Time `db:"premium_expiry" json:"premium_expiry,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"     json:"updated_at"`
}

// AdminAllowlist holds the managed admin email lists read from the
// admin_config store. Comparison is case-insensitive.
type AdminAllowlist struct {
	SuperAdmins []string
	Admins      []string
}

// ContainsSuperAdmin reports whether email is in the super-admin list.
func (a AdminAllowlist) ContainsSuperAdmin(email string) bool {
	return containsFold(a.SuperAdmins, email)
}

// ContainsAdmin reports whether email is in the admin list.
func (a AdminAllowlist) ContainsAdmin(email string) bool {
	return containsFold(a.Admins, email)
}

// RoleFor returns the allow-listed role for email, or RoleGuest with
// ok=false when the email appears in neither list.
func (a AdminAllowlist) RoleFor(email string) (Role, bool) {
	if a.ContainsSuperAdmin(email) {
		return RoleSuperAdmin, true
	}
	if a.ContainsAdmin(email) {
		return RoleAdmin, true
	}
	return RoleGuest, false
}

func containsFold(list []string, email string) bool {
	if email == "" {
		return false
	}
	for _, e := range list {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}
