package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorusapp/sessiond/internal/data"
	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	mocksauth "github.com/chorusapp/sessiond/internal/mocks/auth"
	"github.com/chorusapp/sessiond/internal/service"
)

// routerFixture wires the router over in-memory doubles so endpoint
// tests exercise the full request path without Redis or Postgres.
type routerFixture struct {
	handler   http.Handler
	sessions  *service.SessionService
	directory *mocksauth.MemoryUserDirectory
	roles     *service.RoleDirectory
	now       time.Time
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	f := &routerFixture{
		directory: mocksauth.NewMemoryUserDirectory(data.ErrUserNotFound),
		now:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	nowFn := func() time.Time { return f.now }

	local := mocksauth.NewMemoryLocalStore()

	limiter, err := service.NewDeviceSessionLimiter(service.DeviceSessionLimiterOptions{
		Repo: mocksauth.NewMemoryDeviceSessionRepo(),
		Now:  nowFn,
	})
	require.NoError(t, err)

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Local:      local,
		Limiter:    limiter,
		Classifier: mocksauth.StaticClassifier{Type: domainauth.DevicePhone},
		Now:        nowFn,
	})
	require.NoError(t, err)
	f.sessions = sessions

	roles, err := service.NewRoleDirectory(service.RoleDirectoryOptions{
		Repo: f.directory,
		Now:  nowFn,
	})
	require.NoError(t, err)
	f.roles = roles

	authz, err := service.NewAuthzService(service.AuthzServiceOptions{
		Sessions: sessions,
		Roles:    roles,
		Now:      nowFn,
	})
	require.NoError(t, err)

	ledger, err := service.NewTrialLedger(local, nil)
	require.NoError(t, err)

	entitlements, err := service.NewEntitlementService(service.EntitlementServiceOptions{
		Sessions: sessions,
		Ledger:   ledger,
		Now:      nowFn,
	})
	require.NoError(t, err)

	sessions.Initialize(context.Background())

	f.handler = NewRouter(RouterServices{
		Sessions:     sessions,
		Authz:        authz,
		Entitlements: entitlements,
		Limiter:      limiter,
		Roles:        roles,
		Directory:    f.directory,
	})
	return f
}

func (f *routerFixture) signIn(t *testing.T, role domainauth.Role) {
	t.Helper()
	_, err := f.sessions.CreateRegisteredSession(context.Background(), service.RegisteredSessionInput{
		UserID: "u1",
		Email:  "u1@example.com",
		Role:   role,
	})
	require.NoError(t, err)
}

func (f *routerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_Healthz(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_CurrentSession(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	sess, ok := body["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "guest", sess["role"])
	assert.NotEmpty(t, sess["device_id"])

	caps, ok := body["capabilities"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, caps["access_audio"])
}

func TestRouter_InitializeSession(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/session/init", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"guest"`)
}

func TestRouter_GrantPremium(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/session/premium", `{"expires_at":null}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	sess := body["session"].(map[string]any)
	assert.Equal(t, true, sess["is_premium"])
	assert.Equal(t, "user", sess["role"], "a paying device is promoted out of guest")
}

func TestRouter_GrantPremium_InvalidJSON(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/session/premium", `{garbage`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestRouter_Devices(t *testing.T) {
	f := newRouterFixture(t)
	f.signIn(t, domainauth.RoleUser)

	rec := f.do(t, http.MethodGet, "/api/session/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	_, ok := body["devices"].([]any)
	assert.True(t, ok, "devices is always an array, never null")
}

func TestRouter_CheckRole(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/authz/role?min=admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["authorized"])
	assert.Equal(t, "guest", body["role"])

	f.signIn(t, domainauth.RoleAdmin)

	rec = f.do(t, http.MethodGet, "/api/authz/role?min=admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["authorized"])
}

func TestRouter_CheckRole_InvalidRole(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/authz/role?min=emperor", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_role")
}

func TestRouter_CheckPage(t *testing.T) {
	f := newRouterFixture(t)
	f.signIn(t, domainauth.RoleSuperAdmin)

	rec := f.do(t, http.MethodGet, "/api/authz/page/user_management", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["authorized"])

	// Unknown pages are denied even for superadmins.
	rec = f.do(t, http.MethodGet, "/api/authz/page/secret_lab", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["authorized"])
}

func TestRouter_Capabilities(t *testing.T) {
	f := newRouterFixture(t)
	f.signIn(t, domainauth.RoleAdmin)

	rec := f.do(t, http.MethodGet, "/api/authz/capabilities", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	caps := body["capabilities"].(map[string]any)
	assert.Equal(t, true, caps["manage_songs"])
	assert.Equal(t, false, caps["manage_users"])
	assert.Equal(t, true, body["audio"], "admins get audio access without premium")
}

func TestRouter_Refresh(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/authz/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session"`)
}

func TestRouter_TrialLifecycle(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/trials/week", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "eligible", decodeBody(t, rec)["state"])

	rec = f.do(t, http.MethodPost, "/api/trials/week", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	sess := body["session"].(map[string]any)
	assert.NotNil(t, sess["trial"])

	// The same kind cannot be redeemed twice on one device.
	rec = f.do(t, http.MethodPost, "/api/trials/week", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "trial_not_eligible")
}

func TestRouter_Trial_InvalidKind(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/trials/month", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_trial_kind")

	rec = f.do(t, http.MethodPost, "/api/trials/month", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_trial_kind")
}

func TestRouter_Users_RequiresSuperAdmin(t *testing.T) {
	f := newRouterFixture(t)
	f.signIn(t, domainauth.RoleAdmin)

	rec := f.do(t, http.MethodGet, "/api/users/u2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_role")
}

func TestRouter_Users_GetAndSetRole(t *testing.T) {
	f := newRouterFixture(t)
	f.signIn(t, domainauth.RoleSuperAdmin)

	rec := f.do(t, http.MethodGet, "/api/users/u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, f.directory.UpsertUser(context.Background(), domainauth.UserRecord{
		ID:    "u2",
		Email: "u2@example.com",
		Role:  "user",
	}))

	rec = f.do(t, http.MethodGet, "/api/users/u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"u2@example.com"`)

	rec = f.do(t, http.MethodPut, "/api/users/u2/role", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)

	got, err := f.directory.GetUser(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
}

func TestRouter_Users_SetRole_InvalidRole(t *testing.T) {
	f := newRouterFixture(t)
	f.signIn(t, domainauth.RoleSuperAdmin)

	rec := f.do(t, http.MethodPut, "/api/users/u2/role", `{"role":"guest"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_role")
}
