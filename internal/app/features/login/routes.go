package login

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
)

// Routes returns a router with the sign-in endpoints.
//
// When mounted at the API root:
//   - POST /api/login
//   - POST /api/logout
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Post("/login", h.Login)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.LoadSessionUser)
		pr.Post("/logout", h.Logout)
	})

	return r
}
