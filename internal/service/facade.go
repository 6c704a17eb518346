package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
)

// Known page identifiers and the minimum role each requires. Pages not
// listed here are denied for everyone; new admin surfaces must opt in.
var pageGuards = map[string]domainauth.Role{
	"user_management":         domainauth.RoleSuperAdmin,
	"song_management":         domainauth.RoleAdmin,
	"announcement_management": domainauth.RoleAdmin,
	"category_management":     domainauth.RoleAdmin,
}

// RoleCheckResult reports an authorization decision together with the
// role it was made against and a reason usable in logs.
type RoleCheckResult struct {
	Authorized bool            `json:"authorized"`
	Role       domainauth.Role `json:"role"`
	Reason     string          `json:"reason,omitempty"`
}

// AuthzServiceOptions groups dependencies for AuthzService.
type AuthzServiceOptions struct {
	Sessions *SessionService // Required: current-session owner
	Roles    *RoleDirectory  // Required: role resolution
	Logger   *slog.Logger    // Optional: structured logger
	Now      func() time.Time
}

// AuthzService is the single authorization entry point. All role,
// capability, and page checks run through it so the deny-by-default
// policy lives in one place.
type AuthzService struct {
	sessions *SessionService
	roles    *RoleDirectory
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthzService constructs an AuthzService with validation.
func NewAuthzService(opts AuthzServiceOptions) (*AuthzService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("SessionService is required")
	}
	if opts.Roles == nil {
		return nil, errors.New("RoleDirectory is required")
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "authz")
	}
	return &AuthzService{
		sessions: opts.Sessions,
		roles:    opts.Roles,
		logger:   logger,
		now:      nowFn,
	}, nil
}

// effectiveRole returns the role authorization decisions run against.
// An expired session is treated as guest regardless of its stored
// role, and a malformed role denies rather than guessing.
func (a *AuthzService) effectiveRole(ctx context.Context) (domainauth.Role, error) {
	sess := a.sessions.Current()
	if sess.Expired(a.now()) {
		return domainauth.RoleGuest, errSessionExpired
	}
	if !sess.Role.Valid() {
		if a.logger != nil {
			a.logger.WarnContext(ctx, "session carries invalid role, denying", "role", sess.Role)
		}
		return domainauth.RoleGuest, errors.New("invalid session role")
	}
	return sess.Role, nil
}

// CheckRole reports whether the current session's role meets the
// minimum.
func (a *AuthzService) CheckRole(ctx context.Context, min domainauth.Role) RoleCheckResult {
	role, err := a.effectiveRole(ctx)
	if err != nil {
		return RoleCheckResult{Role: domainauth.RoleGuest, Reason: err.Error()}
	}
	if !role.AtLeast(min) {
		return RoleCheckResult{Role: role, Reason: "insufficient role"}
	}
	return RoleCheckResult{Authorized: true, Role: role}
}

// CheckPageAccess reports whether the current session may open the
// named page. Unknown pages deny.
func (a *AuthzService) CheckPageAccess(ctx context.Context, page string) RoleCheckResult {
	min, ok := pageGuards[page]
	if !ok {
		role, _ := a.effectiveRole(ctx)
		if a.logger != nil {
			a.logger.WarnContext(ctx, "access to unknown page denied", "page", page)
		}
		return RoleCheckResult{Role: role, Reason: "unknown page"}
	}
	return a.CheckRole(ctx, min)
}

// HasCapability reports whether the current session holds the
// capability.
func (a *AuthzService) HasCapability(ctx context.Context, c domainauth.Capability) bool {
	if _, err := a.effectiveRole(ctx); err != nil {
		return false
	}
	return a.sessions.Current().Can(c, a.now())
}

// Capabilities returns the full capability map for the current
// session.
func (a *AuthzService) Capabilities(ctx context.Context) map[domainauth.Capability]bool {
	if _, err := a.effectiveRole(ctx); err != nil {
		caps := make(map[domainauth.Capability]bool, len(domainauth.Capabilities()))
		for _, c := range domainauth.Capabilities() {
			caps[c] = false
		}
		return caps
	}
	return a.sessions.Current().CapabilityMap(a.now())
}

// IsPremium reports whether the current session holds a live premium
// grant.
func (a *AuthzService) IsPremium() bool {
	return a.sessions.Current().PremiumActive(a.now())
}

// CanAccessAudio reports whether the current session may play audio.
func (a *AuthzService) CanAccessAudio() bool {
	return a.sessions.Current().CanAccessAudio(a.now())
}

// ForceRefresh drops the cached role for the current user, re-resolves
// it from the directory, and rewrites the session when the role
// changed. Used after an operator edits someone's role.
func (a *AuthzService) ForceRefresh(ctx context.Context) (domainauth.Session, error) {
	sess := a.sessions.Current()
	if sess.IsGuest() {
		return sess, nil
	}

	a.roles.Invalidate(sess.UserID)

	role := a.roles.ResolveRole(ctx, domainauth.Principal{ID: sess.UserID, Email: sess.Email})
	if role == sess.Role {
		return sess, nil
	}

	if a.logger != nil {
		a.logger.InfoContext(ctx, "role refreshed", "user_id", sess.UserID, "from", sess.Role, "to", role)
	}
	return a.sessions.UpdateRole(ctx, role)
}
