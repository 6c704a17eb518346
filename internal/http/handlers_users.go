package httpx

import (
	"errors"
	"net/http"

	"github.com/chorusapp/sessiond/internal/data"
	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
	"github.com/chorusapp/sessiond/internal/service"
)

// UserHandlers provides HTTP handlers for user directory
// administration.
type UserHandlers struct {
	Directory ports.UserDirectoryRepository
	Roles     *service.RoleDirectory
}

// Get returns a user directory record.
// GET /api/users/{id}.
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := h.Directory.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "user_not_found", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "user_lookup_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// setRoleRequest is the payload for SetRole.
type setRoleRequest struct {
	Role domainauth.Role `json:"role"`
}

// SetRole updates a user's role and drops the cached value so the
// change is visible on the next check.
// PUT /api/users/{id}/role.
func (h *UserHandlers) SetRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req setRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !req.Role.Valid() || req.Role == domainauth.RoleGuest {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_role",
			Err:     errors.New("role must be one of user, admin, superadmin"),
		})
		return
	}

	if err := h.Directory.SetRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "user_not_found", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "role_update_failed", Err: err})
		return
	}

	h.Roles.Invalidate(id)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
