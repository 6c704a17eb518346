package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	mocksauth "github.com/chorusapp/sessiond/internal/mocks/auth"
)

type sessionFixture struct {
	svc     *SessionService
	local   *mocksauth.MemoryLocalStore
	premium *mocksauth.MemoryPremiumCache
	devices *mocksauth.MemoryDeviceSessionRepo
	now     time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		local:   mocksauth.NewMemoryLocalStore(),
		premium: mocksauth.NewMemoryPremiumCache(),
		devices: mocksauth.NewMemoryDeviceSessionRepo(),
		now:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	limiter, err := NewDeviceSessionLimiter(DeviceSessionLimiterOptions{
		Repo: f.devices,
		Now:  func() time.Time { return f.now },
	})
	require.NoError(t, err)

	svc, err := NewSessionService(SessionServiceOptions{
		Local:      f.local,
		Limiter:    limiter,
		Premium:    f.premium,
		Classifier: mocksauth.StaticClassifier{Type: domainauth.DevicePhone},
		Now:        func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewSessionService_RequiresLocalStore(t *testing.T) {
	t.Parallel()

	_, err := NewSessionService(SessionServiceOptions{})
	require.Error(t, err)
}

func TestSessionService_Initialize_FreshGuest(t *testing.T) {
	f := newSessionFixture(t)

	sess := f.svc.Initialize(context.Background())

	assert.True(t, sess.IsGuest())
	assert.Equal(t, domainauth.RoleGuest, sess.Role)
	assert.Equal(t, f.now.Add(domainauth.GuestSessionTTL), sess.ExpiresAt)
	assert.Equal(t, domainauth.DevicePhone, sess.DeviceType)
	assert.NotEmpty(t, sess.DeviceID)
	assert.False(t, sess.CanAccessAudio(f.now))
}

func TestSessionService_Initialize_Idempotent(t *testing.T) {
	f := newSessionFixture(t)

	first := f.svc.Initialize(context.Background())
	second := f.svc.Initialize(context.Background())

	assert.Equal(t, first.ID, second.ID)
}

func TestSessionService_Initialize_RestoresPersisted(t *testing.T) {
	f := newSessionFixture(t)

	created, err := f.svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID: "u1", Email: "u1@example.com", Role: domainauth.RoleUser,
	})
	require.NoError(t, err)

	// A second service over the same local store sees the session.
	svc2, err := NewSessionService(SessionServiceOptions{
		Local: f.local,
		Now:   func() time.Time { return f.now },
	})
	require.NoError(t, err)

	restored := svc2.Initialize(context.Background())
	assert.Equal(t, created.ID, restored.ID)
	assert.Equal(t, "u1", restored.UserID)
}

func TestSessionService_Initialize_ExpiredBecomesGuest(t *testing.T) {
	f := newSessionFixture(t)

	created, err := f.svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID: "u1", Role: domainauth.RoleUser,
	})
	require.NoError(t, err)

	f.now = f.now.Add(domainauth.RegisteredSessionTTL + time.Hour)

	svc2, err := NewSessionService(SessionServiceOptions{
		Local: f.local,
		Now:   func() time.Time { return f.now },
	})
	require.NoError(t, err)

	sess := svc2.Initialize(context.Background())
	assert.True(t, sess.IsGuest())
	assert.NotEqual(t, created.ID, sess.ID)
}

func TestSessionService_Initialize_CorruptStateBecomesGuest(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.local.Set("user_session_v2", []byte("{garbage")))

	sess := f.svc.Initialize(context.Background())
	assert.True(t, sess.IsGuest())
}

func TestSessionService_Current_BeforeInitialize(t *testing.T) {
	f := newSessionFixture(t)

	sess := f.svc.Current()
	assert.True(t, sess.IsGuest(), "pre-init callers get a transient guest, never a zero value")
}

func TestSessionService_DeviceID_Stable(t *testing.T) {
	f := newSessionFixture(t)

	id := f.svc.DeviceID()
	require.NotEmpty(t, id)
	assert.Len(t, id, 32)
	assert.Equal(t, id, f.svc.DeviceID())

	// Survives a restart via the local store.
	svc2, err := NewSessionService(SessionServiceOptions{
		Local: f.local,
		Now:   func() time.Time { return f.now },
	})
	require.NoError(t, err)
	assert.Equal(t, id, svc2.DeviceID())
}

func TestSessionService_CreateRegisteredSession(t *testing.T) {
	f := newSessionFixture(t)
	expiry := f.now.Add(30 * 24 * time.Hour)

	sess, err := f.svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID:        "u1",
		Email:         "u1@example.com",
		Role:          domainauth.RoleUser,
		IsPremium:     true,
		PremiumExpiry: &expiry,
	})
	require.NoError(t, err)

	assert.False(t, sess.IsGuest())
	assert.True(t, sess.PremiumActive(f.now))
	assert.True(t, sess.CanAccessAudio(f.now))
	assert.Equal(t, f.now.Add(domainauth.RegisteredSessionTTL), sess.ExpiresAt)

	// Premium login registers a device-session record with the limiter.
	recs, err := f.devices.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, sess.DeviceID, recs[0].DeviceID)
}

func TestSessionService_CreateRegisteredSession_NonPremiumSkipsLimiter(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID: "u1", Role: domainauth.RoleUser,
	})
	require.NoError(t, err)

	recs, err := f.devices.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSessionService_GrantPremium_PromotesGuest(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.Initialize(context.Background())

	sess, err := f.svc.GrantPremium(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, domainauth.RoleUser, sess.Role, "paying guest is promoted to user")
	assert.True(t, sess.PremiumActive(f.now))
	assert.Nil(t, sess.PremiumExpiry, "nil expiry means indefinite")

	// The grant is mirrored into the premium cache.
	rec, ok, err := f.premium.Load(context.Background(), sess.DeviceID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.IsPremium)
}

func TestSessionService_UpdateRole(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID: "u1", Role: domainauth.RoleAdmin,
	})
	require.NoError(t, err)

	sess, err := f.svc.UpdateRole(context.Background(), domainauth.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, sess.Role)
	assert.False(t, sess.HasAudioAccess, "demotion revokes admin-sourced audio access")
}

func TestSessionService_Logout(t *testing.T) {
	f := newSessionFixture(t)

	registered, err := f.svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID: "u1", Role: domainauth.RoleUser, IsPremium: true,
	})
	require.NoError(t, err)

	guest := f.svc.Logout(context.Background())

	assert.True(t, guest.IsGuest())
	assert.NotEqual(t, registered.ID, guest.ID)
	assert.Equal(t, registered.DeviceID, guest.DeviceID, "device identity survives logout")

	// The limiter record is released.
	recs, err := f.devices.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSessionService_Logout_RestoresPremiumFromCache(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.Initialize(context.Background())

	_, err := f.svc.GrantPremium(context.Background(), nil)
	require.NoError(t, err)

	guest := f.svc.Logout(context.Background())

	assert.True(t, guest.IsGuest() || guest.Role == domainauth.RoleUser)
	assert.True(t, guest.PremiumActive(f.now), "device-scoped premium survives logout")
}

func TestSessionService_PremiumRestoreSkipsLapsedGrant(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.Initialize(context.Background())

	expiry := f.now.Add(time.Hour)
	_, err := f.svc.GrantPremium(context.Background(), &expiry)
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	guest := f.svc.Logout(context.Background())

	assert.False(t, guest.PremiumActive(f.now), "lapsed cached grant must not be restored")
}

func TestSessionService_AttachTrial(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.Initialize(context.Background())

	sess, err := f.svc.AttachTrial(context.Background(), domainauth.Trial{
		StartedAt: f.now, Kind: domainauth.TrialDay,
	})
	require.NoError(t, err)

	require.NotNil(t, sess.Trial)
	assert.True(t, sess.HasActiveTrial(f.now))
	assert.True(t, sess.HasTrialAccess(f.now))
}

func TestSessionService_PersistFailureSurfacesOnWrite(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.Initialize(context.Background())
	f.local.FailWrites = true

	_, err := f.svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID: "u1", Role: domainauth.RoleUser,
	})
	require.Error(t, err)

	_, err = f.svc.GrantPremium(context.Background(), nil)
	require.Error(t, err)
}

func TestSessionService_Mirror(t *testing.T) {
	f := newSessionFixture(t)

	mirror := &recordingMirror{}
	svc, err := NewSessionService(SessionServiceOptions{
		Local:  f.local,
		Mirror: mirror,
		Now:    func() time.Time { return f.now },
	})
	require.NoError(t, err)

	sess, err := svc.CreateRegisteredSession(context.Background(), RegisteredSessionInput{
		UserID: "u1", Role: domainauth.RoleUser,
	})
	require.NoError(t, err)
	require.Len(t, mirror.saved, 1)
	assert.Equal(t, sess.ID, mirror.saved[0].ID)

	svc.Logout(context.Background())
	require.Len(t, mirror.deleted, 1)
	assert.Equal(t, sess.ID, mirror.deleted[0])
}

type recordingMirror struct {
	saved   []domainauth.Session
	deleted []string
}

func (m *recordingMirror) Save(_ context.Context, sess domainauth.Session) error {
	m.saved = append(m.saved, sess)
	return nil
}

func (m *recordingMirror) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}
