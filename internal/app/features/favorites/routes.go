// internal/app/features/favorites/routes.go
package favorites

import (
	"github.com/dalemusser/animelist/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes registers the favorites endpoints on r.
func Routes(r chi.Router, h *Handler, tm *auth.TokenManager) {
	r.Get("/getFavoriteAnimes/{userId}", h.GetFavoriteAnimes)

	r.Group(func(r chi.Router) {
		r.Use(tm.RequireSignedIn)
		r.Post("/addFavoriteAnime", h.AddFavoriteAnime)
		r.Post("/removeAnime", h.RemoveAnime)
	})
}
