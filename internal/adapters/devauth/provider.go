package devauth

// Package devauth provides a simple, config-driven identity provider
// for local development.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

// Config controls the dev auth provider behavior.
type Config struct {
	UserID string
	Email  string
}

// Provider implements ports.IdentityProvider for local development.
// It short-circuits the OAuth flow by redirecting back to our own
// callback with locally generated state and nonce. Exchange ignores
// the code and returns the configured principal.
type Provider struct {
	principal domainauth.Principal
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	return &Provider{
		principal: domainauth.Principal{
			ID:    cfg.UserID,
			Email: cfg.Email,
		},
	}, nil
}

// Begin returns a local callback URL and cryptographically secure
// state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	// Our standard handler expects GET /auth/callback?code=...&state=...
	authURL := "/auth/callback?code=dev&state=" + state
	return authURL, state, nonce, nil
}

// Exchange ignores the provided code/state/nonce (validation handled
// by the handler) and returns the dev principal.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Principal, error) {
	return p.principal, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}
