// Package profile provides the signed-in user's account API.
//
// Endpoints (mounted at /api/me, all require sign-in):
//   - GET   /          - the caller's account
//   - PATCH /          - update faculty and course year
//   - POST  /password  - change password; drops the caller's other sessions
package profile

import (
	"net/http"

	"go.uber.org/zap"

	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/authutil"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/mailer"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Config carries the values used in the password changed notification.
type Config struct {
	AppName string
	BaseURL string
}

// Handler handles account API requests.
type Handler struct {
	users    *userstore.Store
	sessions *sessionstore.Store
	mail     *mailer.Mailer
	audit    *auditlog.Logger
	cfg      Config
	logger   *zap.Logger
}

// NewHandler creates a profile handler. mail and audit may be nil.
func NewHandler(users *userstore.Store, sessions *sessionstore.Store, mail *mailer.Mailer, audit *auditlog.Logger, cfg Config, logger *zap.Logger) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		mail:     mail,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
	}
}

type updateRequest struct {
	Faculty *string `json:"faculty" validate:"omitempty,max=150" label:"Faculty"`
	Course  *int    `json:"course" validate:"omitempty,min=0,max=6" label:"Course"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required" label:"Current password"`
	NewPassword     string `json:"new_password" validate:"required" label:"New password"`
}

type meResponse struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`
	Faculty       string `json:"faculty,omitempty"`
	Course        int    `json:"course,omitempty"`
}

func toMeResponse(u *models.User) meResponse {
	return meResponse{
		ID:            u.ID.Hex(),
		FullName:      u.FullName,
		Email:         u.Email,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		Faculty:       u.Faculty,
		Course:        u.Course,
	}
}

// Me handles GET /.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}

	account, err := h.users.GetByID(r.Context(), user.UserID())
	if err != nil {
		h.logger.Error("failed to load account", zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to load account")
		return
	}
	if account == nil {
		jsonutil.NotFound(w, "Account not found")
		return
	}
	jsonutil.OK(w, toMeResponse(account))
}

// Update handles PATCH /.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}

	var in updateRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	if err := h.users.Update(r.Context(), user.UserID(), userstore.UpdateInput{
		Faculty: in.Faculty,
		Course:  in.Course,
	}); err != nil {
		h.logger.Error("failed to update profile", zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to update profile")
		return
	}

	account, err := h.users.GetByID(r.Context(), user.UserID())
	if err != nil || account == nil {
		jsonutil.InternalError(w, "Failed to load account")
		return
	}
	jsonutil.OK(w, toMeResponse(account))
}

// ChangePassword handles POST /password. The current session stays alive;
// every other session of the account is dropped.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}
	ctx := r.Context()

	var in passwordRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	account, err := h.users.GetByID(ctx, user.UserID())
	if err != nil || account == nil {
		h.logger.Error("failed to load account", zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to change password")
		return
	}
	if !authutil.CheckPassword(in.CurrentPassword, account.PasswordHash) {
		jsonutil.Unauthorized(w, "Current password is incorrect")
		return
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		jsonutil.InternalError(w, "Failed to change password")
		return
	}
	if err := h.users.UpdatePassword(ctx, account.ID, hash); err != nil {
		h.logger.Error("failed to update password", zap.String("user_id", user.ID), zap.Error(err))
		jsonutil.InternalError(w, "Failed to change password")
		return
	}

	// other devices are signed out; the caller's session survives
	if _, err := h.sessions.DeleteForUserExcept(ctx, account.ID, user.Token); err != nil {
		h.logger.Error("failed to drop sessions after password change",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	h.audit.PasswordChanged(ctx, r, account.ID)

	if h.mail != nil {
		text, html := mailer.PasswordChangedEmail(mailer.PasswordChangedEmailData{
			AppName:  h.cfg.AppName,
			LoginURL: h.cfg.BaseURL + "/login",
		})
		if err := h.mail.Send(mailer.Email{
			To:       account.Email,
			Subject:  h.cfg.AppName + ": your password was changed",
			TextBody: text,
			HTMLBody: html,
		}); err != nil {
			h.logger.Error("failed to send password changed email",
				zap.String("email", account.Email), zap.Error(err))
		}
	}

	jsonutil.OK(w, map[string]any{"ok": true})
}
