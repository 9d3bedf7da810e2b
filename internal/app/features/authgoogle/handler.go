// Package authgoogle provides university Google sign-in.
//
// Endpoints (mounted at /auth/google):
//   - GET /          - redirect to Google with a one-time state nonce
//   - GET /callback  - exchange the code, verify the account, sign in
//
// Sign-in is restricted to existing, active accounts whose email is on an
// allowed institutional domain. Google sign-in never creates accounts.
package authgoogle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	oauthstatestore "github.com/unihub-ua/unihub/internal/app/store/oauthstate"
	sessionstore "github.com/unihub-ua/unihub/internal/app/store/sessions"
	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/inputval"
	"github.com/unihub-ua/unihub/internal/app/system/network"
	"github.com/unihub-ua/unihub/internal/app/system/throttle"
	"github.com/unihub-ua/unihub/internal/app/system/timeouts"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Config carries the OAuth client settings.
type Config struct {
	ClientID       string
	ClientSecret   string
	BaseURL        string
	AllowedDomains []string
	// LandingPath is where successful sign-ins land. Defaults to "/".
	LandingPath string
}

// Handler handles the Google OAuth flow.
type Handler struct {
	users    *userstore.Store
	sessions *sessionstore.Store
	states   *oauthstatestore.Store
	sm       *auth.SessionManager
	throttle *throttle.Throttle
	audit    *auditlog.Logger
	oauth    *oauth2.Config
	cfg      Config
	logger   *zap.Logger
}

// NewHandler creates a Google sign-in handler. audit may be nil.
func NewHandler(
	users *userstore.Store,
	sessions *sessionstore.Store,
	states *oauthstatestore.Store,
	sm *auth.SessionManager,
	thr *throttle.Throttle,
	audit *auditlog.Logger,
	cfg Config,
	logger *zap.Logger,
) *Handler {
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/"
	}
	return &Handler{
		users:    users,
		sessions: sessions,
		states:   states,
		sm:       sm,
		throttle: thr,
		audit:    audit,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Start handles GET /. Issues a state nonce and redirects to Google.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context(), r.URL.Query().Get("redirect"))
	if err != nil {
		h.logger.Error("failed to issue oauth state", zap.Error(err))
		h.failLogin(w, r, "oauth_error")
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /callback.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.states.Consume(ctx, r.URL.Query().Get("state"))
	if err != nil {
		h.logger.Error("failed to consume oauth state", zap.Error(err))
		h.failLogin(w, r, "oauth_error")
		return
	}
	if rec == nil {
		h.logger.Warn("oauth callback with unknown or reused state",
			zap.String("ip", network.GetClientIP(r)))
		h.failLogin(w, r, "invalid_state")
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.logger.Warn("oauth error from provider", zap.String("error", errMsg))
		h.failLogin(w, r, errMsg)
		return
	}

	token, err := h.oauth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("oauth code exchange failed", zap.Error(err))
		h.failLogin(w, r, "token_exchange_failed")
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.logger.Error("failed to fetch google user info", zap.Error(err))
		h.failLogin(w, r, "userinfo_failed")
		return
	}
	if !info.VerifiedEmail {
		h.failLogin(w, r, "email_not_verified")
		return
	}
	if !inputval.IsInstitutionalEmail(info.Email, h.cfg.AllowedDomains) {
		h.logger.Warn("google sign-in from non-institutional domain",
			zap.String("email", info.Email))
		h.failLogin(w, r, "wrong_domain")
		return
	}

	user, err := h.users.GetByEmail(ctx, info.Email)
	if err != nil {
		h.logger.Error("failed to look up user", zap.Error(err))
		h.failLogin(w, r, "database_error")
		return
	}
	if user == nil {
		// sign-in never creates accounts; registration goes through the
		// institutional email flow
		h.audit.LoginFailedUserNotFound(ctx, r, info.Email)
		h.failLogin(w, r, "user_not_found")
		return
	}
	if user.Status != models.StatusActive {
		h.audit.LoginFailedUserDisabled(ctx, r, user.ID, user.Email)
		h.failLogin(w, r, "account_disabled")
		return
	}

	if err := h.createTrackedSession(w, r, user); err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		h.failLogin(w, r, "session_error")
		return
	}

	h.throttle.RecordSuccess(ctx, r, user.Email)
	h.audit.GoogleSignIn(ctx, r, user.ID, user.Email)

	dest := h.cfg.LandingPath
	if rec.Redirect != "" {
		dest = rec.Redirect
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (h *Handler) createTrackedSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}
	if err := h.sm.CreateSession(w, r, user.ID, user.Role, token); err != nil {
		return err
	}

	settings := h.throttle.Settings().Current(r.Context())
	ttl := time.Duration(settings.SessionTimeoutMinutes) * time.Minute
	if _, err := h.sessions.Create(r.Context(), token, user.ID,
		network.GetClientIP(r), network.GetUserAgent(r), ttl); err != nil {
		// tracking is best effort; the cookie session already exists
		h.logger.Warn("failed to track session", zap.Error(err))
	}
	return nil
}

func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, "/login?error="+reason, http.StatusSeeOther)
}
