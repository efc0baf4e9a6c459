// internal/app/features/feed/routes.go
package feed

import "github.com/go-chi/chi/v5"

// Routes registers the activity feed on r.
func Routes(r chi.Router, h *Handler) {
	r.Get("/activityFeed/{userId}", h.ActivityFeed)
}
