package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chorusapp/sessiond/internal/data"
	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider  ports.IdentityProvider        // Required: identity provider
	Sessions  *SessionService               // Required: current-session owner
	Roles     *RoleDirectory                // Required: role resolution
	Directory ports.UserDirectoryRepository // Optional: premium flags and first-login upsert
	Logger    *slog.Logger                  // Optional: structured logger
	Now       func() time.Time
}

// AuthService orchestrates sign-in by coordinating the identity
// provider, role resolution, the user directory, and session creation.
type AuthService struct {
	provider  ports.IdentityProvider
	sessions  *SessionService
	roles     *RoleDirectory
	directory ports.UserDirectoryRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService with validation.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Provider == nil {
		return nil, errors.New("IdentityProvider is required")
	}
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
		logger = opts.Logger.With("component", "auth_service")
	}
	return &AuthService{
		provider:  opts.Provider,
		sessions:  opts.Sessions,
		roles:     opts.Roles,
		directory: opts.Directory,
		logger:    logger,
		now:       nowFn,
	}, nil
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider
// auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the authorization code for an identity,
// resolves the user's role and premium state, and replaces the current
// guest session with a registered one.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (domainauth.Session, error) {
	if input.Code == "" {
		return domainauth.Session{}, errors.New("authorization code is required")
	}
	if input.State == "" {
		return domainauth.Session{}, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return domainauth.Session{}, errors.New("nonce parameter is required")
	}

	principal, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if principal.ID == "" {
		principal.ID = uuid.NewString()
	}

	role := s.roles.ResolveRole(ctx, principal)

	in := RegisteredSessionInput{
		UserID: principal.ID,
		Email:  principal.Email,
		Role:   role,
	}
	if rec, ok := s.lookupUser(ctx, principal); ok {
		in.IsPremium = rec.IsPremium
		in.PremiumExpiry = rec.PremiumExpiry
	}

	sess, err := s.sessions.CreateRegisteredSession(ctx, in)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "login completed",
			"user_id", sess.UserID, "role", sess.Role, "premium", sess.IsPremium)
	}
	return sess, nil
}

// Logout clears the current session and reverts to guest.
func (s *AuthService) Logout(ctx context.Context) domainauth.Session {
	return s.sessions.Logout(ctx)
}

// lookupUser fetches the directory record, creating one on first
// login. Directory trouble degrades to a non-premium session instead
// of failing the sign-in.
func (s *AuthService) lookupUser(ctx context.Context, principal domainauth.Principal) (domainauth.UserRecord, bool) {
	if s.directory == nil {
		return domainauth.UserRecord{}, false
	}

	rec, err := s.directory.GetUser(ctx, principal.ID)
	if err == nil {
		return rec, true
	}
	if !errors.Is(err, data.ErrUserNotFound) {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "user directory lookup failed", "error", err)
		}
		return domainauth.UserRecord{}, false
	}

	now := s.now()
	rec = domainauth.UserRecord{
		ID:        principal.ID,
		Email:     principal.Email,
		Role:      string(domainauth.RoleUser),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.directory.UpsertUser(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "first-login user upsert failed", "error", err)
		}
		return domainauth.UserRecord{}, false
	}
	return rec, true
}
