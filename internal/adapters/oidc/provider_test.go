package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/chorusapp/sessiond/internal/ports"
)

// newDiscoveryServer serves a minimal OIDC discovery document whose
// issuer is the server itself.
func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	var issuer string
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		doc := map[string]any{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/auth",
			"token_endpoint":         issuer + "/token",
			"userinfo_endpoint":      issuer + "/userinfo",
			"jwks_uri":               issuer + "/jwks",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	srv := httptest.NewServer(mux)
	issuer = srv.URL
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server) ProviderConfig {
	return ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        "openid profile email",
		DiscoveryURL: srv.URL,
		HTTPClient:   srv.Client(),
	}
}

func TestNewProvider_Success(t *testing.T) {
	srv := newDiscoveryServer(t)

	provider, err := NewProvider(testConfig(srv))
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, srv.URL+"/auth", provider.config.Endpoint.AuthURL)
	assert.Equal(t, srv.URL+"/token", provider.config.Endpoint.TokenURL)
}

func TestNewProvider_TrimsDiscoverySuffix(t *testing.T) {
	srv := newDiscoveryServer(t)

	cfg := testConfig(srv)
	cfg.DiscoveryURL = srv.URL + "/.well-known/openid-configuration"

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/auth", provider.config.Endpoint.AuthURL)
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProviderConfig)
		errMsg string
	}{
		{"missing client ID", func(c *ProviderConfig) { c.ClientID = "" }, "client ID is required"},
		{"missing client secret", func(c *ProviderConfig) { c.ClientSecret = "" }, "client secret is required"},
		{"missing redirect URL", func(c *ProviderConfig) { c.RedirectURL = "" }, "redirect URL is required"},
		{"missing discovery URL", func(c *ProviderConfig) { c.DiscoveryURL = "" }, "discovery URL is required"},
	}

	srv := newDiscoveryServer(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(srv)
			tc.mutate(&cfg)
			_, err := NewProvider(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	srv := newDiscoveryServer(t)
	provider, err := NewProvider(testConfig(srv))
	require.NoError(t, err)

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Len(t, state, 32)
	assert.Len(t, nonce, 32)
	assert.NotEqual(t, state, nonce)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Equal(t, "test-client", q.Get("client_id"))
	assert.True(t, strings.HasPrefix(authURL, srv.URL+"/auth"))
}

func TestProvider_Begin_RequiresRedirectURL(t *testing.T) {
	srv := newDiscoveryServer(t)
	provider, err := NewProvider(testConfig(srv))
	require.NoError(t, err)

	_, _, _, err = provider.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
}

func TestProvider_Exchange_InputValidation(t *testing.T) {
	srv := newDiscoveryServer(t)
	provider, err := NewProvider(testConfig(srv))
	require.NoError(t, err)

	_, err = provider.Exchange(context.Background(), ports.ExchangeInput{State: "s", Nonce: "n"})
	require.Error(t, err)

	_, err = provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c", Nonce: "n"})
	require.Error(t, err)

	_, err = provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s"})
	require.Error(t, err)
}

func TestGenerateRandomString(t *testing.T) {
	for _, length := range []int{0, 1, 16, 32, 43} {
		s, err := generateRandomString(length)
		require.NoError(t, err)
		assert.Len(t, s, length)
	}

	a, err := generateRandomString(32)
	require.NoError(t, err)
	b, err := generateRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGetIDTokenFromToken(t *testing.T) {
	_, err := getIDTokenFromToken(nil)
	require.Error(t, err)

	_, err = getIDTokenFromToken(&oauth2.Token{})
	require.Error(t, err)

	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "raw-jwt"})
	raw, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "raw-jwt", raw)
}

func TestHasOpenIDScope(t *testing.T) {
	srv := newDiscoveryServer(t)

	cfg := testConfig(srv)
	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.True(t, provider.hasOpenIDScope())

	cfg.Scope = "profile email"
	provider, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.False(t, provider.hasOpenIDScope())
}
