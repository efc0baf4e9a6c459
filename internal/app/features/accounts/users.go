// internal/app/features/accounts/users.go
package accounts

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/paging"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userListResponse struct {
	Users      []models.UserSummary `json:"users"`
	NextCursor string               `json:"nextCursor,omitempty"`
	HasMore    bool                 `json:"hasMore"`
}

// UserByID handles GET /userById/{userId}.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "userById: bad id", err, "Invalid user ID.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "userById: lookup failed", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, u)
}

// AllUsers handles GET /allUsers?search=&after=&limit=.
func (h *Handler) AllUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := paging.ParseLimit(r)
	if !ok {
		apierrors.WriteMessage(w, http.StatusBadRequest, "limit must be between 1 and 100.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Users.List(ctx, userstore.ListOptions{
		Search: query.Get(r, "search"),
		After:  paging.ParseAfter(r),
		Limit:  limit,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "allUsers: list failed", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, userListResponse{
		Users:      page.Users,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}
