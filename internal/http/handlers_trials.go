package httpx

import (
	"errors"
	"net/http"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/service"
)

// TrialHandlers provides HTTP handlers for the trial lifecycle.
type TrialHandlers struct {
	Entitlements *service.EntitlementService
}

// Status reports the trial state for a kind.
// GET /api/trials/{kind}.
func (h *TrialHandlers) Status(w http.ResponseWriter, r *http.Request) {
	kind := domainauth.TrialKind(r.PathValue("kind"))
	if !kind.Valid() {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_trial_kind",
			Err:     errors.New("kind must be day or week"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, h.Entitlements.Status(kind))
}

// Start redeems a trial for the current session.
// POST /api/trials/{kind}.
func (h *TrialHandlers) Start(w http.ResponseWriter, r *http.Request) {
	kind := domainauth.TrialKind(r.PathValue("kind"))

	sess, err := h.Entitlements.StartTrial(r.Context(), kind)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTrialKind):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_trial_kind", Err: err})
		case errors.Is(err, service.ErrTrialNotEligible):
			WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "trial_not_eligible", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "trial_start_failed", Err: err})
		}
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"session": sess})
}
