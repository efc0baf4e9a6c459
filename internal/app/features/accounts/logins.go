// internal/app/features/accounts/logins.go
package accounts

import (
	"context"
	"net/http"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	"github.com/dalemusser/animelist/internal/app/system/paging"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/dalemusser/animelist/internal/domain/models"
)

type loginHistoryResponse struct {
	Logins []models.LoginRecord `json:"logins"`
}

// LoginHistory handles GET /loginHistory/{userId}?limit=. Owner only.
func (h *Handler) LoginHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownAccount(w, r, "view the login history of")
	if !ok {
		return
	}
	limit, ok := paging.ParseLimit(r)
	if !ok {
		apierrors.WriteMessage(w, http.StatusBadRequest, "Invalid limit.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Logins.Recent(ctx, id, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "loginHistory: query failed", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, loginHistoryResponse{Logins: recs})
}
