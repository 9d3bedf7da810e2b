package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
)

// Routes returns a router with the comment endpoints. Intended to be
// mounted under /api/announcements/{id}/comments; the parent announcement
// id is read from the enclosing route.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)

	r.Get("/", h.List)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.Create)
		pr.Patch("/{commentID}", h.Update)
		pr.Delete("/{commentID}", h.Delete)
	})

	return r
}
