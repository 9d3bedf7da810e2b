// Package securityapi provides the admin security settings API.
//
// Endpoints (mounted at /api/admin/security, admin only):
//   - GET  /         - the currently effective settings
//   - GET  /history  - past settings records, newest first
//   - POST /         - append a new settings record
//
// Settings records are append-only; the current configuration is the
// most recently created record. Writing a record invalidates the cached
// provider so the login throttle picks it up immediately.
package securityapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	settingstore "github.com/unihub-ua/unihub/internal/app/store/securitysettings"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/throttle"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Handler handles security settings API requests.
type Handler struct {
	store    *settingstore.Store
	provider *throttle.SettingsProvider
	audit    *auditlog.Logger
	logger   *zap.Logger
}

// NewHandler creates a security settings handler.
func NewHandler(store *settingstore.Store, provider *throttle.SettingsProvider, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		provider: provider,
		audit:    audit,
		logger:   logger,
	}
}

type settingsRequest struct {
	MaxLoginAttempts      int `json:"max_login_attempts" validate:"required,min=1,max=100" label:"Max login attempts"`
	LockoutMinutes        int `json:"lockout_minutes" validate:"required,min=1,max=1440" label:"Lockout minutes"`
	SessionTimeoutMinutes int `json:"session_timeout_minutes" validate:"required,min=5,max=10080" label:"Session timeout"`
	IdleTimeoutMinutes    int `json:"idle_timeout_minutes" validate:"required,min=5,max=1440" label:"Idle timeout"`
}

// Current handles GET /.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Latest(r.Context())
	if err != nil {
		h.logger.Error("failed to load security settings", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load settings")
		return
	}
	jsonutil.OK(w, settings)
}

// History handles GET /history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.store.History(r.Context(), int64(limit))
	if err != nil {
		h.logger.Error("failed to load settings history", zap.Error(err))
		jsonutil.InternalError(w, "Failed to load settings history")
		return
	}
	jsonutil.OK(w, map[string]any{"items": records})
}

// Create handles POST /. Appends a record and invalidates the cached
// provider.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "Sign in required")
		return
	}

	var in settingsRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(&in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	creatorID := user.UserID()
	created, err := h.store.Create(r.Context(), models.SecuritySettings{
		MaxLoginAttempts:      in.MaxLoginAttempts,
		LockoutMinutes:        in.LockoutMinutes,
		SessionTimeoutMinutes: in.SessionTimeoutMinutes,
		IdleTimeoutMinutes:    in.IdleTimeoutMinutes,
		CreatedByID:           &creatorID,
		CreatedByName:         user.Name,
	})
	if err != nil {
		h.logger.Error("failed to create security settings", zap.Error(err))
		jsonutil.InternalError(w, "Failed to save settings")
		return
	}

	h.provider.Invalidate()
	h.audit.SecuritySettingsCreated(r.Context(), r, creatorID, "max_login_attempts,lockout_minutes,session_timeout_minutes,idle_timeout_minutes")

	h.logger.Info("security settings updated",
		zap.String("created_by", user.ID),
		zap.Int("max_login_attempts", created.MaxLoginAttempts),
		zap.Int("lockout_minutes", created.LockoutMinutes))

	jsonutil.Created(w, created)
}
