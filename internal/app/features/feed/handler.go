// internal/app/features/feed/handler.go
package feed

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	"github.com/dalemusser/animelist/internal/app/store/queries/activityfeed"
	"github.com/dalemusser/animelist/internal/app/system/paging"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the per-user activity feed.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger
}

// NewHandler constructs a feed Handler.
func NewHandler(db *mongo.Database, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog}
}

// ActivityFeed handles GET /activityFeed/{userId}?after=&limit=.
func (h *Handler) ActivityFeed(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "activityFeed: bad id", err, "Invalid user ID.")
		return
	}
	limit, ok := paging.ParseLimit(r)
	if !ok {
		apierrors.WriteMessage(w, http.StatusBadRequest, "limit must be between 1 and 100.")
		return
	}
	after := paging.ParseAfter(r)
	if after != "" {
		if _, _, ok := paging.DecodeTimeCursor(after); !ok {
			apierrors.WriteMessage(w, http.StatusBadRequest, "Invalid cursor.")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	page, err := activityfeed.Build(ctx, h.DB, id, activityfeed.Options{After: after, Limit: limit})
	if errors.Is(err, activityfeed.ErrUserNotFound) {
		apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "activityFeed: build failed", err)
		return
	}
	if page.Activities == nil {
		page.Activities = []models.Activity{}
	}
	apierrors.WriteJSON(w, http.StatusOK, page)
}
