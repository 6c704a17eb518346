package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

// Versioned local storage keys. Bumping a version abandons the old
// record instead of migrating it in place; stale keys simply stop
// being read.
const (
	sessionStorageKey  = "user_session_v2"
	deviceIDStorageKey = "device_id_v2"
)

const defaultSessionRemoteTimeout = 10 * time.Second

// SessionMirror is the optional remote copy of registered sessions,
// used by the HTTP surface for bearer lookups.
type SessionMirror interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Delete(ctx context.Context, id string) error
}

// RegisteredSessionInput groups sign-in attributes for
// CreateRegisteredSession. Device identity is supplied by the service.
type RegisteredSessionInput struct {
	UserID        string
	Email         string
	Role          domainauth.Role
	IsPremium     bool
	PremiumExpiry *time.Time
}

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Local         ports.LocalStore            // Required: local persistence
	Limiter       *DeviceSessionLimiter       // Optional: premium concurrency cap
	Premium       ports.PremiumCacheStore     // Optional: durable premium marker
	Mirror        SessionMirror               // Optional: remote session mirror
	Classifier    domainauth.DeviceClassifier // Optional: defaults to unknown
	Logger        *slog.Logger                // Optional: structured logger
	Now           func() time.Time            // Optional: injectable clock for tests
	RemoteTimeout time.Duration               // Optional: default 10s
}

// SessionService owns the single current session for this process.
// There is no global singleton: the invariant is enforced by one
// constructed service instance guarding its own state.
//
// All lifecycle operations replace the current session with a new
// immutable value; concurrent operations are last-write-wins on that
// reference, so multi-step flows must be awaited sequentially by the
// caller.
type SessionService struct {
	local      ports.LocalStore
	limiter    *DeviceSessionLimiter
	premium    ports.PremiumCacheStore
	mirror     SessionMirror
	classifier domainauth.DeviceClassifier
	logger     *slog.Logger
	now        func() time.Time
	timeout    time.Duration

	mu       sync.RWMutex
	loaded   bool
	deviceID string
	current  domainauth.Session
}

// NewSessionService constructs a SessionService with validation.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Local == nil {
		return nil, errors.New("LocalStore is required")
	}

	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	timeout := opts.RemoteTimeout
	if timeout <= 0 {
		timeout = defaultSessionRemoteTimeout
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "session_service")
	}

	return &SessionService{
		local:      opts.Local,
		limiter:    opts.Limiter,
		premium:    opts.Premium,
		mirror:     opts.Mirror,
		classifier: opts.Classifier,
		logger:     logger,
		now:        nowFn,
		timeout:    timeout,
	}, nil
}

// Initialize loads the persisted session or synthesizes a fresh guest
// session. It always returns a usable session and never fails: corrupt
// or expired local state is discarded, not surfaced. Concurrent calls
// are idempotent; later callers get the already-loaded value.
func (s *SessionService) Initialize(ctx context.Context) domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.current
	}

	s.deviceID = s.ensureDeviceID()

	sess, ok := s.loadPersisted()
	if !ok {
		sess = s.newGuestLocked(ctx)
		s.persistLocked(sess)
	}

	s.current = sess
	s.loaded = true

	if s.logger != nil {
		s.logger.InfoContext(ctx, "session initialized",
			"role", sess.Role, "guest", sess.IsGuest(), "device_type", sess.DeviceType)
	}
	return sess
}

// Current returns the current session synchronously. Never nil-like:
// before Initialize it returns a same-shape transient guest session.
func (s *SessionService) Current() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.loaded {
		return s.current
	}
	return domainauth.NewGuestSession(s.deviceID, s.classify(), s.now())
}

// DeviceID returns the stable per-install device id, generating and
// persisting it on first use.
func (s *SessionService) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceID = s.ensureDeviceID()
	return s.deviceID
}

// CreateRegisteredSession replaces the current session after a sign-in.
// For premium users the device-session cap is enforced first; the
// limiter's take-over policy means the new login always wins.
func (s *SessionService) CreateRegisteredSession(ctx context.Context, in RegisteredSessionInput) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deviceID = s.ensureDeviceID()
	now := s.now()
	devType := s.classify()

	if in.IsPremium && s.limiter != nil {
		s.limiter.CheckAndEnforce(ctx, in.UserID, domainauth.DeviceSession{
			DeviceID:   s.deviceID,
			DeviceType: devType,
			CreatedAt:  now,
			ExpiresAt:  now.Add(domainauth.RegisteredSessionTTL),
		})
	}

	sess := domainauth.NewRegisteredSession(domainauth.RegisteredSessionParams{
		UserID:        in.UserID,
		Email:         in.Email,
		Role:          in.Role,
		IsPremium:     in.IsPremium,
		PremiumExpiry: in.PremiumExpiry,
		DeviceID:      s.deviceID,
		DeviceType:    devType,
	}, now)

	if err := s.persistStrictLocked(sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("persist session: %w", err)
	}
	s.mirrorSave(ctx, sess)

	s.current = sess
	s.loaded = true
	return sess, nil
}

// GrantPremium upgrades the current session's premium grant. A nil
// expiry means indefinite. Besides the session record, a secondary
// premium cache entry is written so the grant survives a local
// storage clear.
func (s *SessionService) GrantPremium(ctx context.Context, expiry *time.Time) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.currentLocked(ctx).WithPremium(expiry)

	if err := s.persistStrictLocked(next); err != nil {
		return domainauth.Session{}, fmt.Errorf("persist session: %w", err)
	}

	// The premium cache and the session mirror are independent remote
	// stores; write them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.savePremiumCache(gctx, next)
		return nil
	})
	g.Go(func() error {
		s.mirrorSave(gctx, next)
		return nil
	})
	_ = g.Wait()

	s.current = next
	s.loaded = true
	return next, nil
}

// AttachTrial replaces the current session with one carrying the trial.
// Eligibility and history recording are the entitlement service's job;
// by the time this runs the trial has already been recorded.
func (s *SessionService) AttachTrial(ctx context.Context, t domainauth.Trial) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.currentLocked(ctx).WithTrial(t)
	if err := s.persistStrictLocked(next); err != nil {
		return domainauth.Session{}, fmt.Errorf("persist session: %w", err)
	}

	s.current = next
	s.loaded = true
	return next, nil
}

// UpdateRole replaces the current session's role, re-deriving audio
// access so demotions revoke admin-sourced entitlements.
func (s *SessionService) UpdateRole(ctx context.Context, role domainauth.Role) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.currentLocked(ctx).WithRole(role)
	if err := s.persistStrictLocked(next); err != nil {
		return domainauth.Session{}, fmt.Errorf("persist session: %w", err)
	}
	s.mirrorSave(ctx, next)

	s.current = next
	s.loaded = true
	return next, nil
}

// Logout clears persisted session state and installs a fresh guest
// session for the same device. Remote cleanup is best-effort; a dead
// network must not block signing out.
func (s *SessionService) Logout(ctx context.Context) domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.currentLocked(ctx)

	if s.mirror != nil && old.ID != "" {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := s.mirror.Delete(rctx, old.ID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "session mirror delete failed", "error", err)
		}
		cancel()
	}
	if s.limiter != nil && old.UserID != "" {
		s.limiter.Release(ctx, old.UserID, old.DeviceID)
	}

	if err := s.local.Delete(sessionStorageKey); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "clear persisted session failed", "error", err)
	}

	guest := s.newGuestLocked(ctx)
	s.persistLocked(guest)

	s.current = guest
	s.loaded = true
	return guest
}

// currentLocked returns the loaded session, lazily synthesizing a
// guest when Initialize has not run. Callers hold the write lock.
func (s *SessionService) currentLocked(ctx context.Context) domainauth.Session {
	if s.loaded {
		return s.current
	}
	s.deviceID = s.ensureDeviceID()
	sess, ok := s.loadPersisted()
	if !ok {
		sess = s.newGuestLocked(ctx)
	}
	s.current = sess
	s.loaded = true
	return sess
}

// newGuestLocked builds a fresh guest session, restoring a premium
// grant from the premium cache when one is still active.
func (s *SessionService) newGuestLocked(ctx context.Context) domainauth.Session {
	guest := domainauth.NewGuestSession(s.deviceID, s.classify(), s.now())
	s.restorePremium(ctx, &guest)
	return guest
}

// loadPersisted reads and validates the local session record. Corrupt
// or expired records are discarded.
func (s *SessionService) loadPersisted() (domainauth.Session, bool) {
	data, ok, err := s.local.Get(sessionStorageKey)
	if err != nil || !ok {
		if err != nil && s.logger != nil {
			s.logger.Warn("read persisted session failed", "error", err)
		}
		return domainauth.Session{}, false
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		if s.logger != nil {
			s.logger.Warn("persisted session corrupt, discarding", "error", err)
		}
		return domainauth.Session{}, false
	}
	if sess.Expired(s.now()) {
		return domainauth.Session{}, false
	}
	if sess.DeviceID == "" {
		sess.DeviceID = s.deviceID
	}
	return sess, true
}

// persistLocked writes the session locally, logging failures instead
// of surfacing them: initialization must always yield a session.
func (s *SessionService) persistLocked(sess domainauth.Session) {
	if err := s.persistStrictLocked(sess); err != nil && s.logger != nil {
		s.logger.Warn("persist session failed", "error", err)
	}
}

func (s *SessionService) persistStrictLocked(sess domainauth.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.local.Set(sessionStorageKey, data)
}

// ensureDeviceID loads or generates the stable per-install device id.
// The id is a hash of a timestamp plus a random nonce, generated once
// and persisted under its versioned key.
func (s *SessionService) ensureDeviceID() string {
	if s.deviceID != "" {
		return s.deviceID
	}

	if data, ok, err := s.local.Get(deviceIDStorageKey); err == nil && ok && len(data) > 0 {
		return string(data)
	}

	sum := sha256.Sum256(fmt.Appendf(nil, "%d:%s", s.now().UnixNano(), uuid.NewString()))
	id := hex.EncodeToString(sum[:])[:32]

	if err := s.local.Set(deviceIDStorageKey, []byte(id)); err != nil && s.logger != nil {
		s.logger.Warn("persist device id failed", "error", err)
	}
	return id
}

func (s *SessionService) classify() domainauth.DeviceType {
	if s.classifier == nil {
		return domainauth.DeviceUnknown
	}
	return s.classifier.Classify()
}

// restorePremium consults the secondary premium cache when building a
// guest session, so a paying device keeps its grant after local
// storage loss. Remote failures are ignored; this is opportunistic.
func (s *SessionService) restorePremium(ctx context.Context, sess *domainauth.Session) {
	if s.premium == nil || sess.DeviceID == "" {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, ok, err := s.premium.Load(rctx, sess.DeviceID)
	if err != nil || !ok || !rec.IsPremium {
		return
	}

	var expiry *time.Time
	if rec.PremiumExpiry != nil {
		t := time.UnixMilli(*rec.PremiumExpiry)
		if !s.now().Before(t) {
			return
		}
		expiry = &t
	}
	*sess = sess.WithPremium(expiry)
}

// savePremiumCache mirrors a premium grant into the secondary cache.
// Best-effort: a failed write only costs durability, not correctness.
func (s *SessionService) savePremiumCache(ctx context.Context, sess domainauth.Session) {
	if s.premium == nil || sess.DeviceID == "" {
		return
	}

	rec := ports.PremiumCacheRecord{IsPremium: sess.IsPremium}
	if sess.PremiumExpiry != nil {
		ms := sess.PremiumExpiry.UnixMilli()
		rec.PremiumExpiry = &ms
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.premium.Save(rctx, sess.DeviceID, rec); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "premium cache write failed", "error", err)
	}
}

func (s *SessionService) mirrorSave(ctx context.Context, sess domainauth.Session) {
	if s.mirror == nil || sess.IsGuest() {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.mirror.Save(rctx, sess); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "session mirror write failed", "error", err)
	}
}
