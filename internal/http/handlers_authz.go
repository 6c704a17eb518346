package httpx

import (
	"errors"
	"net/http"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/service"
)

// AuthzHandlers provides HTTP handlers for authorization checks.
type AuthzHandlers struct {
	Authz        *service.AuthzService
	Entitlements *service.EntitlementService
}

// CheckRole reports whether the current session meets a minimum role.
// GET /api/authz/role?min=<role>.
func (h *AuthzHandlers) CheckRole(w http.ResponseWriter, r *http.Request) {
	min := domainauth.Role(r.URL.Query().Get("min"))
	if !min.Valid() {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_role",
			Err:     errors.New("min must be one of guest, user, admin, superadmin"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, h.Authz.CheckRole(r.Context(), min))
}

// CheckPage reports whether the current session may open a page.
// GET /api/authz/page/{page}.
func (h *AuthzHandlers) CheckPage(w http.ResponseWriter, r *http.Request) {
	page := r.PathValue("page")
	if page == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_page",
			Err:     errors.New("page identifier is required"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, h.Authz.CheckPageAccess(r.Context(), page))
}

// Capabilities returns the full capability map for the current session.
// GET /api/authz/capabilities.
func (h *AuthzHandlers) Capabilities(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"capabilities": h.Authz.Capabilities(r.Context()),
		"premium":      h.Authz.IsPremium(),
		"audio":        h.Authz.CanAccessAudio(),
	})
}

// Refresh drops the cached role and re-resolves it from the directory.
// POST /api/authz/refresh.
func (h *AuthzHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Authz.ForceRefresh(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "refresh_failed",
			Err:     err,
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"session": sess})
}
