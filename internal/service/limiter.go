package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
)

const defaultLimiterTimeout = 10 * time.Second

// DefaultDeviceCaps allows one concurrent session per device class.
var DefaultDeviceCaps = map[domainauth.DeviceType]int{
	domainauth.DevicePhone:  1,
	domainauth.DeviceTablet: 1,
	domainauth.DeviceWeb:    1,
}

// DeviceSessionLimiterOptions groups dependencies for
// DeviceSessionLimiter.
type DeviceSessionLimiterOptions struct {
	Repo    ports.DeviceSessionRepository // Required: remote session records
	Caps    map[domainauth.DeviceType]int // Optional: default 1 per class
	Logger  *slog.Logger                  // Optional: structured logger
	Now     func() time.Time              // Optional: injectable clock for tests
	Timeout time.Duration                 // Optional: default 10s
}

// DeviceSessionLimiter caps concurrent premium sessions per device
// class. The cap is enforced lazily at login with a take-over policy:
// the newest login evicts the oldest same-class session rather than
// being refused.
//
// Enforcement fails open. The limit protects revenue, not security, so
// a degraded backend must never lock a paying user out.
type DeviceSessionLimiter struct {
	repo    ports.DeviceSessionRepository
	caps    map[domainauth.DeviceType]int
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewDeviceSessionLimiter constructs a DeviceSessionLimiter with
// validation.
func NewDeviceSessionLimiter(opts DeviceSessionLimiterOptions) (*DeviceSessionLimiter, error) {
	if opts.Repo == nil {
		return nil, errors.New("DeviceSessionRepository is required")
	}

	caps := opts.Caps
	if caps == nil {
		caps = DefaultDeviceCaps
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultLimiterTimeout
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "device_limiter")
	}

	return &DeviceSessionLimiter{
		repo:    opts.Repo,
		caps:    caps,
		logger:  logger,
		now:     nowFn,
		timeout: timeout,
	}, nil
}

// capFor returns the concurrency cap for a device class. Unknown
// classes are uncapped.
func (l *DeviceSessionLimiter) capFor(t domainauth.DeviceType) int {
	if c, ok := l.caps[t]; ok {
		return c
	}
	return 0
}

// CheckAndEnforce admits the new device session, evicting the oldest
// same-class sessions of other devices until the class is under its
// cap. The reported bool is whether admission happened cleanly; it is
// always true because enforcement fails open on every error path.
func (l *DeviceSessionLimiter) CheckAndEnforce(ctx context.Context, userID string, next domainauth.DeviceSession) bool {
	rctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	limit := l.capFor(next.DeviceType)
	if limit > 0 {
		existing, err := l.repo.List(rctx, userID)
		if err != nil {
			l.warn(ctx, "list device sessions failed, admitting", err)
			existing = nil
		}

		now := l.now()
		var rivals []domainauth.DeviceSession
		for _, ds := range existing {
			if ds.DeviceID == next.DeviceID || ds.DeviceType != next.DeviceType || ds.Expired(now) {
				continue
			}
			rivals = append(rivals, ds)
		}
		sort.Slice(rivals, func(i, j int) bool {
			return rivals[i].CreatedAt.Before(rivals[j].CreatedAt)
		})

		// Evict oldest-first until the new session fits.
		for len(rivals) >= limit {
			victim := rivals[0]
			rivals = rivals[1:]
			if err := l.repo.Delete(rctx, userID, victim.DeviceID); err != nil {
				l.warn(ctx, "evict device session failed", err)
				continue
			}
			if l.logger != nil {
				l.logger.InfoContext(ctx, "evicted oldest device session",
					"user_id", userID, "device_type", victim.DeviceType, "evicted_device", victim.DeviceID)
			}
		}
	}

	if err := l.repo.Put(rctx, userID, next); err != nil {
		l.warn(ctx, "register device session failed, admitting", err)
	}
	return true
}

// Release removes this device's session record, typically at logout.
// Best-effort: an orphaned record ages out via its expiry.
func (l *DeviceSessionLimiter) Release(ctx context.Context, userID, deviceID string) {
	rctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.repo.Delete(rctx, userID, deviceID); err != nil {
		l.warn(ctx, "release device session failed", err)
	}
}

// ListSessions returns a user's active device sessions. Only the user
// themselves or an admin may look; everyone else gets an empty list,
// as does any caller when the backend errs.
func (l *DeviceSessionLimiter) ListSessions(ctx context.Context, requestor domainauth.Session, userID string) []domainauth.DeviceSession {
	if requestor.UserID != userID && !requestor.Role.IsAdmin() {
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	all, err := l.repo.List(rctx, userID)
	if err != nil {
		l.warn(ctx, "list device sessions failed", err)
		return nil
	}

	now := l.now()
	active := all[:0]
	for _, ds := range all {
		if !ds.Expired(now) {
			active = append(active, ds)
		}
	}
	return active
}

func (l *DeviceSessionLimiter) warn(ctx context.Context, msg string, err error) {
	if l.logger != nil {
		l.logger.WarnContext(ctx, msg, "error", err)
	}
}
