package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

func TestMockIdentityProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockIdentityProvider()
	ctx := context.Background()

	input := ports.BeginInput{RedirectURL: "http://localhost:8080/callback"}
	authURL, state, nonce, err := provider.Begin(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	// Second call should increment counters
	_, state2, nonce2, err2 := provider.Begin(ctx, input)
	require.NoError(t, err2)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockIdentityProvider_Exchange_Defaults(t *testing.T) {
	provider := NewMockIdentityProvider()

	principal, err := provider.Exchange(context.Background(), ports.ExchangeInput{
		Code:  "dev",
		State: "state-1",
		Nonce: "nonce-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", principal.ID)
	assert.Equal(t, "mock.user@example.com", principal.Email)
	assert.False(t, principal.Anonymous)
}

func TestMockIdentityProvider_Overrides(t *testing.T) {
	provider := NewMockIdentityProvider()
	provider.ExchangeFunc = func(_ context.Context, _ ports.ExchangeInput) (domainauth.Principal, error) {
		return domainauth.Principal{}, errors.New("exchange refused")
	}

	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{})
	require.Error(t, err)
}

func TestMemoryLocalStore_RoundTrip(t *testing.T) {
	store := NewMemoryLocalStore()

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("k", []byte("v1")))

	got, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	// Mutating the returned slice must not affect the stored value.
	got[0] = 'x'
	again, _, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again)

	require.NoError(t, store.Delete("k"))
	_, ok, err = store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLocalStore_FailWrites(t *testing.T) {
	store := NewMemoryLocalStore()
	store.FailWrites = true

	require.Error(t, store.Set("k", []byte("v")))
	_, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDeviceSessionRepo_PutListDelete(t *testing.T) {
	repo := NewMemoryDeviceSessionRepo()
	ctx := context.Background()
	now := time.Now()

	rec := domainauth.DeviceSession{
		DeviceID:   "dev-1",
		DeviceType: domainauth.DevicePhone,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	require.NoError(t, repo.Put(ctx, "user-1", rec))

	got, err := repo.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dev-1", got[0].DeviceID)

	require.NoError(t, repo.Delete(ctx, "user-1", "dev-1"))
	got, err = repo.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryDeviceSessionRepo_ErrInjection(t *testing.T) {
	repo := NewMemoryDeviceSessionRepo()
	repo.Err = errors.New("redis down")

	_, err := repo.List(context.Background(), "user-1")
	require.Error(t, err)
	require.Error(t, repo.Put(context.Background(), "user-1", domainauth.DeviceSession{}))
}

func TestMemoryPremiumCache_RoundTrip(t *testing.T) {
	cache := NewMemoryPremiumCache()
	ctx := context.Background()

	_, ok, err := cache.Load(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok)

	expiry := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, cache.Save(ctx, "dev-1", ports.PremiumCacheRecord{
		IsPremium:     true,
		PremiumExpiry: &expiry,
	}))

	rec, ok, err := cache.Load(ctx, "dev-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.IsPremium)
	require.NotNil(t, rec.PremiumExpiry)
	assert.Equal(t, expiry, *rec.PremiumExpiry)

	require.NoError(t, cache.Delete(ctx, "dev-1"))
	_, ok, err = cache.Load(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUserDirectory(t *testing.T) {
	notFound := errors.New("user not found")
	dir := NewMemoryUserDirectory(notFound)
	ctx := context.Background()

	_, err := dir.GetUser(ctx, "u1")
	require.ErrorIs(t, err, notFound)

	require.NoError(t, dir.UpsertUser(ctx, domainauth.UserRecord{
		ID:    "u1",
		Email: "u1@example.com",
		Role:  string(domainauth.RoleUser),
	}))

	rec, err := dir.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", rec.Email)

	require.NoError(t, dir.SetRole(ctx, "u1", domainauth.RoleAdmin))
	rec, err = dir.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, string(domainauth.RoleAdmin), rec.Role)

	require.ErrorIs(t, dir.SetRole(ctx, "nobody", domainauth.RoleAdmin), notFound)

	dir.SetAllowlist(domainauth.AdminAllowlist{SuperAdmins: []string{"root@example.com"}})
	list, err := dir.Allowlist(ctx)
	require.NoError(t, err)
	assert.True(t, list.ContainsSuperAdmin("Root@Example.com"))
}

func TestStaticClassifier(t *testing.T) {
	assert.Equal(t, domainauth.DeviceUnknown, StaticClassifier{}.Classify())
	assert.Equal(t, domainauth.DeviceTablet, StaticClassifier{Type: domainauth.DeviceTablet}.Classify())
}
