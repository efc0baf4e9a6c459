// internal/app/features/social/social.go
package social

import (
	"context"
	"net/http"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	"github.com/dalemusser/animelist/internal/app/system/authz"
	"github.com/dalemusser/animelist/internal/app/system/socialgraph"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// pair resolves the caller and the {targetUserId} parameter. It writes the
// error response and returns ok=false when either is unusable.
func (h *Handler) pair(w http.ResponseWriter, r *http.Request, name string) (actor, target primitive.ObjectID, ok bool) {
	actor, ok = authz.UserID(r)
	if !ok {
		apierrors.WriteMessage(w, http.StatusUnauthorized, "Missing authentication token")
		return actor, target, false
	}
	target, err := primitive.ObjectIDFromHex(chi.URLParam(r, "targetUserId"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, name+": bad target id", err, "Invalid user ID.")
		return actor, target, false
	}
	return actor, target, true
}

// runPair applies op to the caller and target and answers okMsg on success.
func (h *Handler) runPair(w http.ResponseWriter, r *http.Request, name string,
	op func(ctx context.Context, actor, target primitive.ObjectID) error, okMsg string) {
	actor, target, ok := h.pair(w, r, name)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := op(ctx, actor, target); err != nil {
		h.ErrLog.Respond(w, r, name, err)
		return
	}
	apierrors.WriteMessage(w, http.StatusOK, okMsg)
}

// Follow handles POST /follow/{targetUserId}.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.pair(w, r, "follow")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	outcome, err := h.Graph.Follow(ctx, actor, target)
	if err != nil {
		h.ErrLog.Respond(w, r, "follow", err)
		return
	}
	if outcome == socialgraph.Requested {
		apierrors.WriteMessage(w, http.StatusOK, "Follow request sent successfully")
		return
	}
	apierrors.WriteMessage(w, http.StatusOK, "User followed successfully")
}

// Unfollow handles POST /unfollow/{targetUserId}.
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.runPair(w, r, "unfollow", h.Graph.Unfollow, "User unfollowed successfully")
}

// Block handles POST /block/{targetUserId}.
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.runPair(w, r, "block", h.Graph.Block, "User blocked successfully")
}

// Unblock handles POST /unblock/{targetUserId}.
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.runPair(w, r, "unblock", h.Graph.Unblock, "User unblocked successfully")
}

// AcceptFollowRequest handles POST /acceptFollowRequest/{requestId}.
func (h *Handler) AcceptFollowRequest(w http.ResponseWriter, r *http.Request) {
	h.respondToRequest(w, r, "accept follow request", h.Graph.AcceptFollowRequest, "Follow request accepted successfully")
}

// RejectFollowRequest handles POST /rejectFollowRequest/{requestId}.
func (h *Handler) RejectFollowRequest(w http.ResponseWriter, r *http.Request) {
	h.respondToRequest(w, r, "reject follow request", h.Graph.RejectFollowRequest, "Follow request rejected successfully")
}

func (h *Handler) respondToRequest(w http.ResponseWriter, r *http.Request, name string,
	op func(ctx context.Context, actor primitive.ObjectID, requestID string) error, okMsg string) {
	actor, ok := authz.UserID(r)
	if !ok {
		apierrors.WriteMessage(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := op(ctx, actor, chi.URLParam(r, "requestId")); err != nil {
		h.ErrLog.Respond(w, r, name, err)
		return
	}
	apierrors.WriteMessage(w, http.StatusOK, okMsg)
}

// Relationship handles GET /relationship/{targetUserId}.
func (h *Handler) Relationship(w http.ResponseWriter, r *http.Request) {
	viewer, target, ok := h.pair(w, r, "relationship")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rel, err := h.Graph.Relationship(ctx, viewer, target)
	if err != nil {
		h.ErrLog.Respond(w, r, "relationship", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, rel)
}
