// internal/app/features/connections/routes.go
package connections

import (
	"github.com/dalemusser/animelist/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes registers the connection listings on r.
func Routes(r chi.Router, h *Handler, tm *auth.TokenManager) {
	r.Get("/getFollowers/{userId}", h.Followers)
	r.Get("/getFollowing/{userId}", h.Following)

	r.Group(func(r chi.Router) {
		r.Use(tm.RequireSignedIn)
		r.Get("/getBlocked/{userId}", h.Blocked)
	})
}
