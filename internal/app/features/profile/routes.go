package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
)

// Routes returns a router with the account endpoints.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.Me)
	r.Patch("/", h.Update)
	r.Post("/password", h.ChangePassword)

	return r
}
