// internal/app/features/social/routes.go
package social

import (
	"github.com/dalemusser/animelist/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes registers the social endpoints on r. Every route requires a signed-in caller.
func Routes(r chi.Router, h *Handler, tm *auth.TokenManager) {
	r.Group(func(r chi.Router) {
		r.Use(tm.RequireSignedIn)
		r.Post("/follow/{targetUserId}", h.Follow)
		r.Post("/unfollow/{targetUserId}", h.Unfollow)
		r.Post("/block/{targetUserId}", h.Block)
		r.Post("/unblock/{targetUserId}", h.Unblock)
		r.Post("/acceptFollowRequest/{requestId}", h.AcceptFollowRequest)
		r.Post("/rejectFollowRequest/{requestId}", h.RejectFollowRequest)
		r.Get("/relationship/{targetUserId}", h.Relationship)
	})
}
