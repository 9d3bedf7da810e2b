package authgoogle

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the Google sign-in endpoints.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Start)
	r.Get("/callback", h.Callback)
	return r
}
