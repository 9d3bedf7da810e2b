package securityapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Routes returns a router with the security settings endpoints.
// Admin only.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.Current)
	r.Get("/history", h.History)
	r.Post("/", h.Create)

	return r
}
