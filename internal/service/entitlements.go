package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

const trialHistoryStorageKey = "trial_history_v1"

// TrialLedger records which trial kinds this device has consumed. The
// record is device-scoped and survives logout; each kind is redeemable
// at most once per install.
type TrialLedger struct {
	local  ports.LocalStore
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	used   map[domainauth.TrialKind]bool
}

// NewTrialLedger constructs a TrialLedger over a local store.
func NewTrialLedger(local ports.LocalStore, logger *slog.Logger) (*TrialLedger, error) {
	if local == nil {
		return nil, errors.New("LocalStore is required")
	}
	if logger != nil {
		logger = logger.With("component", "trial_ledger")
	}
	return &TrialLedger{local: local, logger: logger}, nil
}

// Used reports whether the device has already consumed this trial kind.
func (tl *TrialLedger) Used(kind domainauth.TrialKind) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.loadLocked()
	return tl.used[kind]
}

// Record marks the trial kind as consumed. It must succeed before any
// grant is issued: losing a trial beats granting it twice.
func (tl *TrialLedger) Record(kind domainauth.TrialKind) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.loadLocked()

	tl.used[kind] = true

	data, err := json.Marshal(tl.used)
	if err != nil {
		return fmt.Errorf("marshal trial history: %w", err)
	}
	if err := tl.local.Set(trialHistoryStorageKey, data); err != nil {
		return fmt.Errorf("persist trial history: %w", err)
	}
	return nil
}

// loadLocked reads the persisted history once. Corrupt or unreadable
// records read as empty, which errs toward granting a trial.
func (tl *TrialLedger) loadLocked() {
	if tl.loaded {
		return
	}
	tl.used = make(map[domainauth.TrialKind]bool)
	tl.loaded = true

	data, ok, err := tl.local.Get(trialHistoryStorageKey)
	if err != nil || !ok {
		if err != nil && tl.logger != nil {
			tl.logger.Warn("read trial history failed", "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, &tl.used); err != nil {
		if tl.logger != nil {
			tl.logger.Warn("trial history corrupt, resetting", "error", err)
		}
		tl.used = make(map[domainauth.TrialKind]bool)
	}
}

// TrialStatus describes the current trial from the caller's
// perspective.
type TrialStatus struct {
	State        domainauth.TrialState `json:"state"`
	Kind         domainauth.TrialKind  `json:"kind,omitempty"`
	Remaining    time.Duration         `json:"remaining,omitempty"`
	ExpiringSoon bool                  `json:"expiring_soon,omitempty"`
}

// EntitlementServiceOptions groups dependencies for EntitlementService.
type EntitlementServiceOptions struct {
	Sessions *SessionService // Required: current-session owner
	Ledger   *TrialLedger    // Required: per-device trial history
	Logger   *slog.Logger    // Optional: structured logger
	Now      func() time.Time
}

// EntitlementService answers feature-access questions and runs the
// trial lifecycle on top of the current session.
type EntitlementService struct {
	sessions *SessionService
	ledger   *TrialLedger
	logger   *slog.Logger
	now      func() time.Time
}

// NewEntitlementService constructs an EntitlementService with
// validation.
func NewEntitlementService(opts EntitlementServiceOptions) (*EntitlementService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("SessionService is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("TrialLedger is required")
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "entitlements")
	}
	return &EntitlementService{
		sessions: opts.Sessions,
		ledger:   opts.Ledger,
		logger:   logger,
		now:      nowFn,
	}, nil
}

// PremiumActive reports whether the current session holds a live
// premium grant.
func (e *EntitlementService) PremiumActive() bool {
	return e.sessions.Current().PremiumActive(e.now())
}

// CanAccessAudio reports whether the current session may play audio.
func (e *EntitlementService) CanAccessAudio() bool {
	return e.sessions.Current().CanAccessAudio(e.now())
}

// HasTrialAccess reports whether a live trial currently grants access.
func (e *EntitlementService) HasTrialAccess() bool {
	return e.sessions.Current().HasTrialAccess(e.now())
}

// Status reports the trial state for a given kind: active and expired
// reflect the session's own trial, otherwise eligibility comes from
// the device ledger.
func (e *EntitlementService) Status(kind domainauth.TrialKind) TrialStatus {
	sess := e.sessions.Current()
	now := e.now()

	if t := sess.Trial; t != nil {
		if t.Active(now) {
			return TrialStatus{
				State:        domainauth.TrialActive,
				Kind:         t.Kind,
				Remaining:    t.Remaining(now),
				ExpiringSoon: t.ExpiringSoon(now),
			}
		}
		if t.Kind == kind {
			return TrialStatus{State: domainauth.TrialExpired, Kind: t.Kind}
		}
	}

	if e.ledger.Used(kind) {
		return TrialStatus{State: domainauth.TrialNotEligible, Kind: kind}
	}
	return TrialStatus{State: domainauth.TrialEligible, Kind: kind}
}

// StartTrial redeems a trial for the current session. The ledger is
// written before the grant: a crash between the two loses the trial
// rather than allowing a second redemption.
func (e *EntitlementService) StartTrial(ctx context.Context, kind domainauth.TrialKind) (domainauth.Session, error) {
	if !kind.Valid() {
		return domainauth.Session{}, fmt.Errorf("%w: %q", ErrInvalidTrialKind, kind)
	}

	if st := e.Status(kind); st.State != domainauth.TrialEligible {
		return domainauth.Session{}, fmt.Errorf("%w: state %s", ErrTrialNotEligible, st.State)
	}

	if err := e.ledger.Record(kind); err != nil {
		return domainauth.Session{}, fmt.Errorf("record trial: %w", err)
	}

	trial := domainauth.Trial{StartedAt: e.now(), Kind: kind}
	sess, err := e.sessions.AttachTrial(ctx, trial)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("attach trial: %w", err)
	}

	if e.logger != nil {
		e.logger.InfoContext(ctx, "trial started", "kind", kind, "expires_at", trial.ExpiresAt())
	}
	return sess, nil
}
