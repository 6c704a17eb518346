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

type entitlementFixture struct {
	svc      *EntitlementService
	sessions *SessionService
	local    *mocksauth.MemoryLocalStore
	now      time.Time
}

func newEntitlementFixture(t *testing.T) *entitlementFixture {
	t.Helper()

	f := &entitlementFixture{
		local: mocksauth.NewMemoryLocalStore(),
		now:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	sessions, err := NewSessionService(SessionServiceOptions{
		Local: f.local,
		Now:   func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.sessions = sessions

	ledger, err := NewTrialLedger(f.local, nil)
	require.NoError(t, err)

	svc, err := NewEntitlementService(EntitlementServiceOptions{
		Sessions: sessions,
		Ledger:   ledger,
		Now:      func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc

	sessions.Initialize(context.Background())
	return f
}

func TestNewEntitlementService_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewEntitlementService(EntitlementServiceOptions{})
	require.Error(t, err)

	local := mocksauth.NewMemoryLocalStore()
	sessions, err := NewSessionService(SessionServiceOptions{Local: local})
	require.NoError(t, err)

	_, err = NewEntitlementService(EntitlementServiceOptions{Sessions: sessions})
	require.Error(t, err, "ledger is required")
}

func TestTrialLedger_RecordAndUsed(t *testing.T) {
	local := mocksauth.NewMemoryLocalStore()
	ledger, err := NewTrialLedger(local, nil)
	require.NoError(t, err)

	assert.False(t, ledger.Used(domainauth.TrialDay))

	require.NoError(t, ledger.Record(domainauth.TrialDay))
	assert.True(t, ledger.Used(domainauth.TrialDay))
	assert.False(t, ledger.Used(domainauth.TrialWeek))

	// History survives a restart through the local store.
	reopened, err := NewTrialLedger(local, nil)
	require.NoError(t, err)
	assert.True(t, reopened.Used(domainauth.TrialDay))
}

func TestTrialLedger_CorruptHistoryReadsEmpty(t *testing.T) {
	local := mocksauth.NewMemoryLocalStore()
	require.NoError(t, local.Set("trial_history_v1", []byte("not json")))

	ledger, err := NewTrialLedger(local, nil)
	require.NoError(t, err)

	assert.False(t, ledger.Used(domainauth.TrialDay), "corrupt history errs toward granting")
}

func TestTrialLedger_RecordFailsWhenStoreFails(t *testing.T) {
	local := mocksauth.NewMemoryLocalStore()
	ledger, err := NewTrialLedger(local, nil)
	require.NoError(t, err)

	local.FailWrites = true
	require.Error(t, ledger.Record(domainauth.TrialDay))
}

func TestEntitlements_Status_Eligible(t *testing.T) {
	f := newEntitlementFixture(t)

	st := f.svc.Status(domainauth.TrialDay)
	assert.Equal(t, domainauth.TrialEligible, st.State)
	assert.Equal(t, domainauth.TrialDay, st.Kind)
}

func TestEntitlements_StartTrial(t *testing.T) {
	f := newEntitlementFixture(t)

	sess, err := f.svc.StartTrial(context.Background(), domainauth.TrialWeek)
	require.NoError(t, err)
	require.NotNil(t, sess.Trial)
	assert.Equal(t, domainauth.TrialWeek, sess.Trial.Kind)

	st := f.svc.Status(domainauth.TrialWeek)
	assert.Equal(t, domainauth.TrialActive, st.State)
	assert.Equal(t, 7*24*time.Hour, st.Remaining)
	assert.False(t, st.ExpiringSoon)
	assert.True(t, f.svc.HasTrialAccess())
}

func TestEntitlements_StartTrial_InvalidKind(t *testing.T) {
	f := newEntitlementFixture(t)

	_, err := f.svc.StartTrial(context.Background(), domainauth.TrialKind("month"))
	require.ErrorIs(t, err, ErrInvalidTrialKind)
}

func TestEntitlements_StartTrial_AtMostOncePerKind(t *testing.T) {
	f := newEntitlementFixture(t)

	_, err := f.svc.StartTrial(context.Background(), domainauth.TrialDay)
	require.NoError(t, err)

	// A second redemption is refused even after the trial lapses.
	f.now = f.now.Add(48 * time.Hour)
	_, err = f.svc.StartTrial(context.Background(), domainauth.TrialDay)
	require.ErrorIs(t, err, ErrTrialNotEligible)
}

func TestEntitlements_StartTrial_RefusedWhileAnotherActive(t *testing.T) {
	f := newEntitlementFixture(t)

	_, err := f.svc.StartTrial(context.Background(), domainauth.TrialDay)
	require.NoError(t, err)

	_, err = f.svc.StartTrial(context.Background(), domainauth.TrialWeek)
	require.ErrorIs(t, err, ErrTrialNotEligible, "an active trial blocks starting another")
}

func TestEntitlements_StartTrial_LedgerWriteFailureBlocksGrant(t *testing.T) {
	f := newEntitlementFixture(t)
	f.local.FailWrites = true

	_, err := f.svc.StartTrial(context.Background(), domainauth.TrialDay)
	require.Error(t, err)
	assert.Nil(t, f.sessions.Current().Trial, "no grant without a recorded redemption")
}

func TestEntitlements_Status_Lifecycle(t *testing.T) {
	f := newEntitlementFixture(t)

	_, err := f.svc.StartTrial(context.Background(), domainauth.TrialWeek)
	require.NoError(t, err)

	// Mid-trial.
	f.now = f.now.Add(3 * 24 * time.Hour)
	st := f.svc.Status(domainauth.TrialWeek)
	assert.Equal(t, domainauth.TrialActive, st.State)
	assert.Equal(t, 4*24*time.Hour, st.Remaining)
	assert.False(t, st.ExpiringSoon)

	// Final day.
	f.now = f.now.Add(3*24*time.Hour + 12*time.Hour)
	st = f.svc.Status(domainauth.TrialWeek)
	assert.Equal(t, domainauth.TrialActive, st.State)
	assert.True(t, st.ExpiringSoon)

	// Lapsed.
	f.now = f.now.Add(24 * time.Hour)
	st = f.svc.Status(domainauth.TrialWeek)
	assert.Equal(t, domainauth.TrialExpired, st.State)
	assert.False(t, f.svc.HasTrialAccess())

	// The other kind is still eligible after this one expires.
	st = f.svc.Status(domainauth.TrialDay)
	assert.Equal(t, domainauth.TrialEligible, st.State)
}

func TestEntitlements_PremiumChecks(t *testing.T) {
	f := newEntitlementFixture(t)

	assert.False(t, f.svc.PremiumActive())
	assert.False(t, f.svc.CanAccessAudio())

	_, err := f.sessions.GrantPremium(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, f.svc.PremiumActive())
	assert.True(t, f.svc.CanAccessAudio())
	assert.True(t, f.svc.HasTrialAccess(), "premium implies premium-content access")
}
