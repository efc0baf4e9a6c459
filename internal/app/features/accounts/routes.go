// internal/app/features/accounts/routes.go
package accounts

import (
	"github.com/dalemusser/animelist/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes registers the account endpoints on r.
func Routes(r chi.Router, h *Handler, tm *auth.TokenManager) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/userById/{userId}", h.UserByID)
	r.Get("/allUsers", h.AllUsers)

	r.Group(func(r chi.Router) {
		r.Use(tm.RequireSignedIn)
		r.Put("/updateAccount/{userId}", h.UpdateAccount)
		r.Delete("/deleteAccount/{userId}", h.DeleteAccount)
		r.Get("/loginHistory/{userId}", h.LoginHistory)
	})
}
