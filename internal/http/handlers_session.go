package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/service"
)

// SessionHandlers provides HTTP handlers for session operations.
type SessionHandlers struct {
	Sessions *service.SessionService
	Authz    *service.AuthzService
	Limiter  *service.DeviceSessionLimiter
}

// Current returns the current session together with its capability map.
// GET /api/session.
func (h *SessionHandlers) Current(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Current()
	WriteJSON(w, http.StatusOK, map[string]any{
		"session":      sess,
		"capabilities": h.Authz.Capabilities(r.Context()),
	})
}

// Initialize loads or creates the session explicitly.
// POST /api/session/init.
func (h *SessionHandlers) Initialize(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Initialize(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{"session": sess})
}

// grantPremiumRequest is the payload for GrantPremium. A null expiry
// grants indefinitely.
type grantPremiumRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// GrantPremium upgrades the current session's premium grant.
// POST /api/session/premium.
func (h *SessionHandlers) GrantPremium(w http.ResponseWriter, r *http.Request) {
	var req grantPremiumRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.Sessions.GrantPremium(r.Context(), req.ExpiresAt)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "premium_grant_failed",
			Err:     err,
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"session": sess})
}

// Devices lists the current user's active device sessions.
// GET /api/session/devices.
func (h *SessionHandlers) Devices(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Current()
	sessions := h.Limiter.ListSessions(r.Context(), sess, sess.UserID)
	if sessions == nil {
		sessions = []domainauth.DeviceSession{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"devices": sessions})
}
