// Package apicors provides CORS middleware for the JSON API.
//
// Two flavors exist:
//   - Public: any origin, no credentials. For read-only endpoints that
//     carry no session (announcement lists, reaction counts, health).
//   - WithOrigins: specific origins with credentials allowed, for the
//     front-end talking to session-authenticated endpoints.
package apicors

import (
	"net/http"
)

// Public returns CORS middleware for unauthenticated read-only endpoints.
//
// It allows any origin and does not allow credentials, so browsers will
// never attach the session cookie cross-origin through these routes.
func Public() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithOrigins returns CORS middleware that only allows the given origins
// and permits credentials, so the browser sends the session cookie.
//
// Usage in routes.go:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(apicors.WithOrigins(appCfg.FrontendOrigin))
//	    r.Mount("/api", apiRoutes)
//	})
func WithOrigins(allowedOrigins ...string) func(http.Handler) http.Handler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			originSet[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				if _, allowed := originSet[origin]; allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Vary", "Origin")
				}
				// If origin not allowed, no CORS headers are set and the
				// browser will block the response.
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-CSRF-Token")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
