package announcements

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Routes returns a router with the announcement endpoints.
//
// Reads are open to anonymous callers; writes require moderator or admin.
// comments, when non-nil, is mounted under /{id}/comments.
func Routes(h *Handler, sm *auth.SessionManager, comments http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	if comments != nil {
		r.Mount("/{id}/comments", comments)
	}

	r.Group(func(mr chi.Router) {
		mr.Use(sm.RequireSignedIn)
		mr.Use(sm.RequireRole(models.RoleModerator, models.RoleAdmin))
		mr.Get("/all", h.ListAll)
		mr.Post("/", h.Create)
		mr.Patch("/{id}", h.Update)
		mr.Delete("/{id}", h.Delete)
	})

	return r
}
