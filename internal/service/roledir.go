package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chorusapp/sessiond/internal/core"
	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

const (
	defaultRoleCacheTTL      = 2 * time.Minute
	defaultDirectoryTimeout  = 10 * time.Second
	allowlistCacheKey        = "allowlist"
	defaultAllowlistCacheTTL = 2 * time.Minute
)

// RoleDirectoryOptions groups dependencies for RoleDirectory.
type RoleDirectoryOptions struct {
	Repo     ports.UserDirectoryRepository // Required: remote user-record store
	Static   domainauth.AdminAllowlist     // Optional: config fallback when the remote store is unreachable
	CacheTTL time.Duration                 // Optional: role cache TTL, default 2m
	Timeout  time.Duration                 // Optional: per-lookup remote deadline, default 10s
	Logger   *slog.Logger                  // Optional: structured logger
	Now      func() time.Time              // Optional: injectable clock for tests
}

// RoleDirectory resolves a principal's role with a short-TTL cache and
// a fallback chain: user record, managed allow-list, static config
// allow-list, default user role. It never returns an error to callers;
// degraded lookups produce a safe role.
//
// The TTL stays short on purpose so role demotions take effect quickly;
// Invalidate exists for the cases that cannot wait out even that.
type RoleDirectory struct {
	repo     ports.UserDirectoryRepository
	static   domainauth.AdminAllowlist
	cacheTTL time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	roles *core.TTLCache[domainauth.Role]
	allow *core.TTLCache[domainauth.AdminAllowlist]
}

// NewRoleDirectory constructs a RoleDirectory with validation.
func NewRoleDirectory(opts RoleDirectoryOptions) (*RoleDirectory, error) {
	if opts.Repo == nil {
		return nil, errors.New("UserDirectoryRepository is required")
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultRoleCacheTTL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDirectoryTimeout
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "role_directory")
	}

	return &RoleDirectory{
		repo:     opts.Repo,
		static:   opts.Static,
		cacheTTL: cacheTTL,
		timeout:  timeout,
		logger:   logger,
		now:      nowFn,
		roles:    core.NewTTLCache[domainauth.Role](core.TTLCacheConfig{Now: nowFn}),
		allow:    core.NewTTLCache[domainauth.AdminAllowlist](core.TTLCacheConfig{Now: nowFn}),
	}, nil
}

// ResolveRole returns the role for the principal. Anonymous principals
// are guests; everything else resolves through the fallback chain and
// lands on RoleUser when nothing matches. Never fails.
func (d *RoleDirectory) ResolveRole(ctx context.Context, p domainauth.Principal) domainauth.Role {
	if p.Anonymous || p.ID == "" {
		return domainauth.RoleGuest
	}

	if role, ok := d.roles.Get(p.ID); ok {
		return role
	}

	role := d.lookupRole(ctx, p)
	d.roles.Set(p.ID, role, d.cacheTTL)
	return role
}

// IsAdmin reports whether the email is allow-listed as admin or above.
func (d *RoleDirectory) IsAdmin(ctx context.Context, email string) bool {
	role, ok := d.allowlist(ctx).RoleFor(email)
	return ok && role.IsAdmin()
}

// IsSuperAdmin reports whether the email is allow-listed as super-admin.
func (d *RoleDirectory) IsSuperAdmin(ctx context.Context, email string) bool {
	role, ok := d.allowlist(ctx).RoleFor(email)
	return ok && role == domainauth.RoleSuperAdmin
}

// Invalidate drops the cached role for one principal, forcing the next
// check to hit the remote store. Called after role-mutating admin
// actions so the change is visible immediately.
func (d *RoleDirectory) Invalidate(principalID string) {
	d.roles.Delete(principalID)
}

// InvalidateAll drops every cached role and the cached allow-list.
func (d *RoleDirectory) InvalidateAll() {
	d.roles.Purge()
	d.allow.Purge()
}

func (d *RoleDirectory) lookupRole(ctx context.Context, p domainauth.Principal) domainauth.Role {
	lookupCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	rec, err := d.repo.GetUser(lookupCtx, p.ID)
	if err == nil {
		return domainauth.ParseRole(rec.Role)
	}

	if d.logger != nil {
		d.logger.DebugContext(ctx, "user record lookup failed, trying allow-list",
			"principal_id", p.ID, "error", err)
	}

	if role, ok := d.allowlist(ctx).RoleFor(p.Email); ok {
		return role
	}
	return domainauth.RoleUser
}

// allowlist returns the managed allow-list, cached, degrading to the
// static config list when the remote store is unreachable.
func (d *RoleDirectory) allowlist(ctx context.Context) domainauth.AdminAllowlist {
	if list, ok := d.allow.Get(allowlistCacheKey); ok {
		return list
	}

	lookupCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	list, err := d.repo.Allowlist(lookupCtx)
	if err != nil {
		if d.logger != nil {
			d.logger.WarnContext(ctx, "allow-list lookup failed, using static fallback", "error", err)
		}
		// Static fallback is not cached: the next call should retry the
		// remote list as soon as it recovers.
		return d.static
	}

	// Merge the static entries so a misconfigured remote list cannot
	// lock out the bootstrap admins.
	list.SuperAdmins = append(list.SuperAdmins, d.static.SuperAdmins...)
	list.Admins = append(list.Admins, d.static.Admins...)

	d.allow.Set(allowlistCacheKey, list, defaultAllowlistCacheTTL)
	return list
}
