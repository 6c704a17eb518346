package auth

import (
	"strings"
	"time"
)

// TrialKind identifies a time-boxed trial grant. A device may consume
// each kind at most once; that history lives outside the Session.
type TrialKind string

const (
	TrialDay  TrialKind = "day"
	TrialWeek TrialKind = "week"
)

// trialExpiringSoonWindow is the remaining-time threshold below which a
// trial is flagged as expiring soon.
const trialExpiringSoonWindow = 24 * time.Hour

// Valid returns true if the kind is one of the defined constants.
func (k TrialKind) Valid() bool {
	return k == TrialDay || k == TrialWeek
}

// Duration returns the entitlement window granted by the trial kind.
func (k TrialKind) Duration() time.Duration {
	switch k {
	case TrialDay:
		return 24 * time.Hour
	case TrialWeek:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseTrialKind normalizes a stored trial kind string. The boolean is
// false for unknown values.
func ParseTrialKind(s string) (TrialKind, bool) {
	k := TrialKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Trial records an activated trial on a session. Expiry is derived from
// StartedAt and the kind's duration; there is no explicit expire event.
type Trial struct {
	StartedAt time.Time `json:"started_at"`
	Kind      TrialKind `json:"kind"`
}

// ExpiresAt returns the instant the trial entitlement lapses.
func (t Trial) ExpiresAt() time.Time {
	return t.StartedAt.Add(t.Kind.Duration())
}

// Active returns true while the trial window is open.
func (t Trial) Active(now time.Time) bool {
	return now.Before(t.ExpiresAt()) && !now.Before(t.StartedAt)
}

// Remaining returns the time left on the trial, clamped at zero.
func (t Trial) Remaining(now time.Time) time.Duration {
	rem := t.ExpiresAt().Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// ExpiringSoon returns true while the trial is active with 24 hours or
// less remaining.
func (t Trial) ExpiringSoon(now time.Time) bool {
	return t.Active(now) && t.Remaining(now) <= trialExpiringSoonWindow
}

// TrialState is the lifecycle state of a trial kind for a device.
type TrialState string

const (
	// TrialNotEligible means the device already consumed this trial kind.
	TrialNotEligible TrialState = "not_eligible"
	// TrialEligible means the device may still activate this trial kind.
	TrialEligible TrialState = "eligible"
	// TrialActive means a trial of this kind is currently running.
	TrialActive TrialState = "active"
	// TrialExpired means the session's trial of this kind has lapsed.
	TrialExpired TrialState = "expired"
)
