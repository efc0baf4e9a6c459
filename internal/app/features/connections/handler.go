// internal/app/features/connections/handler.go
package connections

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	"github.com/dalemusser/animelist/internal/app/store/queries/connections"
	"github.com/dalemusser/animelist/internal/app/system/authz"
	"github.com/dalemusser/animelist/internal/app/system/paging"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler lists a user's followers, following and blocked accounts.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger
}

// NewHandler constructs a connections Handler.
func NewHandler(db *mongo.Database, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog}
}

// list serves one kind of connection under the response key.
func (h *Handler) list(kind connections.Kind, key string, selfOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
		if err != nil {
			h.ErrLog.LogBadRequest(w, r, string(kind)+": bad id", err, "Invalid user ID.")
			return
		}
		if selfOnly && !authz.IsSelf(r, id) {
			h.ErrLog.LogForbidden(w, r, string(kind)+": not the owner", "You can only view your own blocked users")
			return
		}
		limit, ok := paging.ParseLimit(r)
		if !ok {
			apierrors.WriteMessage(w, http.StatusBadRequest, "limit must be between 1 and 100.")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		defer cancel()

		page, err := connections.List(ctx, h.DB, id, kind, paging.ParseAfter(r), limit)
		if errors.Is(err, connections.ErrUserNotFound) {
			apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, string(kind)+": list failed", err)
			return
		}
		body := map[string]any{key: page.Users, "hasMore": page.HasMore}
		if page.NextCursor != "" {
			body["nextCursor"] = page.NextCursor
		}
		apierrors.WriteJSON(w, http.StatusOK, body)
	}
}

// Followers handles GET /getFollowers/{userId}.
func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.list(connections.Followers, "followers", false)(w, r)
}

// Following handles GET /getFollowing/{userId}.
func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.list(connections.Following, "following", false)(w, r)
}

// Blocked handles GET /getBlocked/{userId}. Only the owner may read it.
func (h *Handler) Blocked(w http.ResponseWriter, r *http.Request) {
	h.list(connections.Blocked, "blockedUsers", true)(w, r)
}
