package teachers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Routes returns a router with the teacher directory endpoints.
//
// Directory reads are open; reviews require sign-in; profile writes
// require admin.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/reviews", h.ListReviews)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Put("/{id}/reviews", h.PutReview)
		pr.Delete("/{id}/reviews", h.DeleteReview)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireSignedIn)
		ar.Use(sm.RequireRole(models.RoleAdmin))
		ar.Post("/", h.Create)
		ar.Patch("/{id}", h.Update)
		ar.Delete("/{id}", h.Delete)
	})

	return r
}
