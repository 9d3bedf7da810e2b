package register

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the registration endpoints.
//
// When mounted at /api/register:
//   - POST /api/register
//   - POST /api/register/verify
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.Register)
	r.Post("/verify", h.Verify)
	return r
}
