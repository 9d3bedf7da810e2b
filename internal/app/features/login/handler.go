// Package login provides password sign-in and sign-out.
//
// Endpoints (mounted at the API root):
//   - POST /api/login  - password sign-in, throttled per account
//   - POST /api/logout - destroy the current session
//
// Every attempt is recorded in the login_attempts ledger. After too many
// recent failures the account is locked and the endpoint answers 429 with
// a retry hint; the lock expires on its own, derived from the ledger.
package login

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	"github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/authutil"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/network"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/app/system/throttle"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Handler handles sign-in and sign-out requests.
type Handler struct {
	users    *users.Store
	sessions *sessionstore.Store
	sm       *auth.SessionManager
	throttle *throttle.Throttle
	audit    *auditlog.Logger
	logger   *zap.Logger
}

// NewHandler creates a login handler.
func NewHandler(userStore *users.Store, sessions *sessionstore.Store, sm *auth.SessionManager, thr *throttle.Throttle, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		users:    userStore,
		sessions: sessions,
		sm:       sm,
		throttle: thr,
		audit:    audit,
		logger:   logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type userResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	email := normalize.Email(in.Email)
	ctx := r.Context()

	decision := h.throttle.Check(ctx, r, email)
	if !decision.Allowed {
		h.audit.LoginLockedOut(ctx, r, email, decision.RetryAfterMinutes)
		jsonutil.RateLimited(w, decision.RetryAfterMinutes*60)
		return
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		h.logger.Error("failed to look up user", zap.Error(err))
		jsonutil.InternalError(w, "Sign-in failed")
		return
	}
	if user == nil {
		h.throttle.RecordFailure(ctx, r, email, models.FailureUserNotFound)
		h.audit.LoginFailedUserNotFound(ctx, r, email)
		jsonutil.Unauthorized(w, "Invalid email or password")
		return
	}

	if !authutil.CheckPassword(in.Password, user.PasswordHash) {
		h.throttle.RecordFailure(ctx, r, email, models.FailureInvalidCredentials)
		h.audit.LoginFailedWrongPassword(ctx, r, user.ID, email)
		jsonutil.Unauthorized(w, "Invalid email or password")
		return
	}

	switch user.Status {
	case models.StatusDisabled:
		h.throttle.RecordFailure(ctx, r, email, models.FailureAccountDisabled)
		h.audit.LoginFailedUserDisabled(ctx, r, user.ID, email)
		jsonutil.Forbidden(w, "This account has been disabled")
		return
	case models.StatusPending:
		jsonutil.Forbidden(w, "Please confirm your email address before signing in")
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		h.logger.Error("failed to generate session token", zap.Error(err))
		jsonutil.InternalError(w, "Sign-in failed")
		return
	}

	settings := h.throttle.Settings().Current(ctx)
	ttl := time.Duration(settings.SessionTimeoutMinutes) * time.Minute
	if _, err := h.sessions.Create(ctx, token, user.ID, network.GetClientIP(r), network.GetUserAgent(r), ttl); err != nil {
		h.logger.Error("failed to persist session", zap.Error(err))
		jsonutil.InternalError(w, "Sign-in failed")
		return
	}

	if err := h.sm.CreateSession(w, r, user.ID, user.Role, token); err != nil {
		h.logger.Error("failed to create session cookie", zap.Error(err))
		jsonutil.InternalError(w, "Sign-in failed")
		return
	}

	h.throttle.RecordSuccess(ctx, r, email)
	h.audit.LoginSuccess(ctx, r, user.ID, email)

	jsonutil.OK(w, map[string]any{
		"ok": true,
		"user": userResponse{
			ID:       user.ID.Hex(),
			FullName: user.FullName,
			Email:    user.Email,
			Role:     user.Role,
		},
	})
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := ""
	if user, ok := auth.CurrentUser(r); ok {
		userID = user.ID
	}

	if token := h.sm.GetSessionToken(r); token != "" {
		if err := h.sessions.Delete(ctx, token); err != nil {
			h.logger.Warn("failed to delete session record", zap.Error(err))
		}
	}
	h.sm.DestroySession(w, r)
	h.audit.Logout(ctx, r, userID)

	jsonutil.OK(w, map[string]any{"ok": true})
}
