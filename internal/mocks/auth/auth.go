package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider        = (*MockIdentityProvider)(nil)
	_ ports.LocalStore              = (*MemoryLocalStore)(nil)
	_ ports.DeviceSessionRepository = (*MemoryDeviceSessionRepo)(nil)
	_ ports.PremiumCacheStore       = (*MemoryPremiumCache)(nil)
	_ ports.UserDirectoryRepository = (*MemoryUserDirectory)(nil)
	_ domainauth.DeviceClassifier   = (*StaticClassifier)(nil)
)

// MockIdentityProvider simulates an IdP for tests with deterministic
// state and nonce handling.
type MockIdentityProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Principal, error)

	// Deterministic values for predictable testing
	AuthURL          string
	DefaultPrincipal domainauth.Principal

	callCount int
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible
// defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultPrincipal: domainauth.Principal{
			ID:    "mock-user-1",
			Email: "mock.user@example.com",
		},
	}
}

func (m *MockIdentityProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}

	state := fmt.Sprintf("state-%d", m.callCount)
	nonce := fmt.Sprintf("nonce-%d", m.callCount)

	return authURL, state, nonce, nil
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Principal, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	return m.DefaultPrincipal, nil
}

// MemoryLocalStore is an in-memory local key-value store for unit
// tests.
type MemoryLocalStore struct {
	mu    sync.Mutex
	items map[string][]byte

	// FailWrites makes Set and Delete return an error, simulating a
	// broken storage backend.
	FailWrites bool
}

// NewMemoryLocalStore creates a new in-memory local store.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{items: make(map[string][]byte)}
}

func (m *MemoryLocalStore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *MemoryLocalStore) Set(key string, value []byte) error {
	if m.FailWrites {
		return errors.New("local store write failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.items[key] = cp
	return nil
}

func (m *MemoryLocalStore) Delete(key string) error {
	if m.FailWrites {
		return errors.New("local store delete failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// MemoryDeviceSessionRepo is an in-memory device session repository
// for unit tests.
type MemoryDeviceSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]map[string]domainauth.DeviceSession

	// Err, when set, is returned from every operation.
	Err error
}

// NewMemoryDeviceSessionRepo creates a new in-memory device session
// repository.
func NewMemoryDeviceSessionRepo() *MemoryDeviceSessionRepo {
	return &MemoryDeviceSessionRepo{
		sessions: make(map[string]map[string]domainauth.DeviceSession),
	}
}

func (m *MemoryDeviceSessionRepo) List(_ context.Context, userID string) ([]domainauth.DeviceSession, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domainauth.DeviceSession, 0, len(m.sessions[userID]))
	for _, ds := range m.sessions[userID] {
		out = append(out, ds)
	}
	return out, nil
}

func (m *MemoryDeviceSessionRepo) Put(_ context.Context, userID string, ds domainauth.DeviceSession) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[userID] == nil {
		m.sessions[userID] = make(map[string]domainauth.DeviceSession)
	}
	m.sessions[userID][ds.DeviceID] = ds
	return nil
}

func (m *MemoryDeviceSessionRepo) Delete(_ context.Context, userID, deviceID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions[userID], deviceID)
	return nil
}

func (m *MemoryDeviceSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return 0, nil
}

// MemoryPremiumCache is an in-memory premium cache for unit tests.
type MemoryPremiumCache struct {
	mu      sync.Mutex
	records map[string]ports.PremiumCacheRecord

	Err error
}

// NewMemoryPremiumCache creates a new in-memory premium cache.
func NewMemoryPremiumCache() *MemoryPremiumCache {
	return &MemoryPremiumCache{records: make(map[string]ports.PremiumCacheRecord)}
}

func (m *MemoryPremiumCache) Save(_ context.Context, deviceID string, rec ports.PremiumCacheRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[deviceID] = rec
	return nil
}

func (m *MemoryPremiumCache) Load(_ context.Context, deviceID string) (ports.PremiumCacheRecord, bool, error) {
	if m.Err != nil {
		return ports.PremiumCacheRecord{}, false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[deviceID]
	return rec, ok, nil
}

func (m *MemoryPremiumCache) Delete(_ context.Context, deviceID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, deviceID)
	return nil
}

// MemoryUserDirectory is an in-memory user directory for unit tests.
type MemoryUserDirectory struct {
	mu    sync.Mutex
	users map[string]domainauth.UserRecord
	list  domainauth.AdminAllowlist

	// Err, when set, is returned from every operation.
	Err error
	// NotFoundErr is the error returned when a user is missing; tests
	// wire the data package sentinel here.
	NotFoundErr error
}

// NewMemoryUserDirectory creates a new in-memory user directory.
func NewMemoryUserDirectory(notFound error) *MemoryUserDirectory {
	return &MemoryUserDirectory{
		users:       make(map[string]domainauth.UserRecord),
		NotFoundErr: notFound,
	}
}

// SetAllowlist replaces the managed allowlist.
func (m *MemoryUserDirectory) SetAllowlist(list domainauth.AdminAllowlist) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = list
}

func (m *MemoryUserDirectory) GetUser(_ context.Context, id string) (domainauth.UserRecord, error) {
	if m.Err != nil {
		return domainauth.UserRecord{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[id]
	if !ok {
		return domainauth.UserRecord{}, m.NotFoundErr
	}
	return rec, nil
}

func (m *MemoryUserDirectory) UpsertUser(_ context.Context, rec domainauth.UserRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[rec.ID] = rec
	return nil
}

func (m *MemoryUserDirectory) SetRole(_ context.Context, id string, role domainauth.Role) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[id]
	if !ok {
		return m.NotFoundErr
	}
	rec.Role = string(role)
	m.users[id] = rec
	return nil
}

func (m *MemoryUserDirectory) Allowlist(_ context.Context) (domainauth.AdminAllowlist, error) {
	if m.Err != nil {
		return domainauth.AdminAllowlist{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list, nil
}

// StaticClassifier reports a fixed device type.
type StaticClassifier struct {
	Type domainauth.DeviceType
}

func (c StaticClassifier) Classify() domainauth.DeviceType {
	if c.Type == "" {
		return domainauth.DeviceUnknown
	}
	return c.Type
}
