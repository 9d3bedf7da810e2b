package moderation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// ReportRoutes returns the user-facing report endpoints, mounted at
// /api/reports.
func ReportRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.FileReport)
	return r
}

// NameChangeRoutes returns the user-facing name change endpoints, mounted
// at /api/name-changes.
func NameChangeRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.RequestNameChange)
	r.Get("/mine", h.MyNameChanges)
	return r
}

// ModerationRoutes returns the moderator work queue endpoints, mounted at
// /api/moderation.
func ModerationRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleModerator, models.RoleAdmin))

	r.Get("/reports", h.ListReports)
	r.Post("/reports/{id}/decide", h.DecideReport)
	r.Get("/name-changes", h.ListNameChanges)
	r.Post("/name-changes/{id}/decide", h.DecideNameChange)

	return r
}

// AdminUserRoutes returns the account administration endpoints, mounted
// at /api/admin/users.
func AdminUserRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.ListUsers)
	r.Post("/{id}/disable", h.DisableUser)
	r.Post("/{id}/enable", h.EnableUser)
	r.Post("/{id}/role", h.ChangeRole)

	return r
}
