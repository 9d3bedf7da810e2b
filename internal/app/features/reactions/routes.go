package reactions

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
)

// Routes returns a router with the reaction endpoints.
//
// When mounted at /api/reactions:
//   - POST /api/reactions/toggle - cast, retract, or flip a vote (signed in)
//   - GET  /api/reactions/counts - aggregate counts for one target
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)

	r.Get("/counts", h.Counts)
	r.Get("/{targetType}/{targetID}/counts", h.Counts)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/toggle", h.Toggle)
	})

	return r
}
