package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/service"
	"github.com/chorusapp/sessiond/internal/testutil"
)

// mockAuthService is a test double for the auth service.
type mockAuthService struct {
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, input service.CompleteLoginInput) (domainauth.Session, error)
	logoutFunc        func(ctx context.Context) domainauth.Session
}

func (m *mockAuthService) BeginLogin(
	ctx context.Context,
	redirectURL string,
) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://example.com/auth?state=test-state&nonce=test-nonce",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (m *mockAuthService) CompleteLogin(
	ctx context.Context,
	input service.CompleteLoginInput,
) (domainauth.Session, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return testutil.NewRegisteredSession("user-1", "user@example.com", now).Build(), nil
}

func (m *mockAuthService) Logout(ctx context.Context) domainauth.Session {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx)
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return testutil.NewGuestSession(now).WithDevice("device-1", domainauth.DevicePhone).Build()
}

func cookieValue(t *testing.T, resp *http.Response, name string) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	t.Fatalf("cookie %q not set", name)
	return ""
}

func TestAuthHandlers_Login(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/songs", nil)
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/auth?state=test-state&nonce=test-nonce",
		resp.Header.Get("Location"))

	assert.Equal(t, "test-state", cookieValue(t, resp, "oauth_state"))
	assert.Equal(t, "test-nonce", cookieValue(t, resp, "oauth_nonce"))
	assert.Equal(t, "/songs", cookieValue(t, resp, "post_login_redirect"))
}

func TestAuthHandlers_Login_RejectsAbsoluteRedirect(t *testing.T) {
	var gotRedirect string
	h := &AuthHandlers{Svc: &mockAuthService{
		beginLoginFunc: func(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
			gotRedirect = redirectURL
			return &service.BeginLoginResult{AuthURL: "https://example.com/auth", State: "s", Nonce: "n"}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=https://evil.example.com/", nil)
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", gotRedirect, "absolute redirect targets collapse to /")
	assert.Equal(t, "/", cookieValue(t, resp, "post_login_redirect"))
}

func TestAuthHandlers_Login_ProviderError(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{
		beginLoginFunc: func(context.Context, string) (*service.BeginLoginResult, error) {
			return nil, errors.New("provider unavailable")
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "login_failed")
}

func TestAuthHandlers_Callback(t *testing.T) {
	var gotInput service.CompleteLoginInput
	h := &AuthHandlers{Svc: &mockAuthService{
		completeLoginFunc: func(_ context.Context, input service.CompleteLoginInput) (domainauth.Session, error) {
			gotInput = input
			return domainauth.NewRegisteredSession(domainauth.RegisteredSessionParams{
				UserID: "user-1",
				Role:   domainauth.RoleUser,
			}, time.Now()), nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	req.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "/songs"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/songs", resp.Header.Get("Location"))

	assert.Equal(t, "auth-code", gotInput.Code)
	assert.Equal(t, "test-state", gotInput.State)
	assert.Equal(t, "test-nonce", gotInput.Nonce)

	// State, nonce, and the redirect cookie are all cleared.
	for _, c := range resp.Cookies() {
		assert.Equal(t, -1, c.MaxAge, "cookie %q should be cleared", c.Name)
	}
}

func TestAuthHandlers_Callback_MissingCode(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=test-state", nil)
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_code")
}

func TestAuthHandlers_Callback_MissingState(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code", nil)
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_state")
}

func TestAuthHandlers_Callback_StateMismatch(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")
}

func TestAuthHandlers_Callback_MissingNonceCookie(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_nonce")
}

func TestAuthHandlers_Callback_ExchangeFailure(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{
		completeLoginFunc: func(context.Context, service.CompleteLoginInput) (domainauth.Session, error) {
			return domainauth.Session{}, errors.New("exchange rejected")
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "login_completion_failed")
}

func TestAuthHandlers_Callback_AbsolutePostLoginRedirect(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	req.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "https://evil.example.com/"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestAuthHandlers_Logout(t *testing.T) {
	called := false
	h := &AuthHandlers{Svc: &mockAuthService{
		logoutFunc: func(context.Context) domainauth.Session {
			called = true
			return domainauth.NewGuestSession("device-1", domainauth.DevicePhone, time.Now())
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
	assert.Contains(t, rec.Body.String(), `"role":"guest"`)
}

func TestSafeRedirectPath(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"/", "/"},
		{"/songs", "/songs"},
		{"/songs?page=2", "/songs?page=2"},
		{"https://evil.example.com/", "/"},
		{"//evil.example.com/", "/"},
		{"relative-no-slash", "/"},
		{"", "/"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, safeRedirectPath(tc.input))
		})
	}
}
