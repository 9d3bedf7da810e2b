// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	announcementsfeature "github.com/unihub-ua/unihub/internal/app/features/announcements"
	authgooglefeature "github.com/unihub-ua/unihub/internal/app/features/authgoogle"
	commentsfeature "github.com/unihub-ua/unihub/internal/app/features/comments"
	healthfeature "github.com/unihub-ua/unihub/internal/app/features/health"
	loginfeature "github.com/unihub-ua/unihub/internal/app/features/login"
	moderationfeature "github.com/unihub-ua/unihub/internal/app/features/moderation"
	profilefeature "github.com/unihub-ua/unihub/internal/app/features/profile"
	reactionsfeature "github.com/unihub-ua/unihub/internal/app/features/reactions"
	registerfeature "github.com/unihub-ua/unihub/internal/app/features/register"
	securityapifeature "github.com/unihub-ua/unihub/internal/app/features/securityapi"
	teachersfeature "github.com/unihub-ua/unihub/internal/app/features/teachers"
	announcementstore "github.com/unihub-ua/unihub/internal/app/store/announcements"
	"github.com/unihub-ua/unihub/internal/app/store/audit"
	commentstore "github.com/unihub-ua/unihub/internal/app/store/comments"
	"github.com/unihub-ua/unihub/internal/app/store/emailverify"
	"github.com/unihub-ua/unihub/internal/app/store/loginattempts"
	"github.com/unihub-ua/unihub/internal/app/store/namechanges"
	"github.com/unihub-ua/unihub/internal/app/store/oauthstate"
	reactionstore "github.com/unihub-ua/unihub/internal/app/store/reactions"
	"github.com/unihub-ua/unihub/internal/app/store/reports"
	reviewstore "github.com/unihub-ua/unihub/internal/app/store/reviews"
	"github.com/unihub-ua/unihub/internal/app/store/securitysettings"
	"github.com/unihub-ua/unihub/internal/app/store/sessions"
	teacherstore "github.com/unihub-ua/unihub/internal/app/store/teachers"
	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/apicors"
	"github.com/unihub-ua/unihub/internal/app/system/auditlog"
	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/jsonutil"
	"github.com/unihub-ua/unihub/internal/app/system/throttle"
	"github.com/unihub-ua/unihub/internal/app/system/timeouts"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// BuildHandler constructs the root HTTP handler for the service.
//
// All product endpoints live under /api and speak JSON. The Google
// OAuth flow lives at /auth/google because the provider redirects a
// browser there. Health probes are at /health plus the root aliases.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase

	// Fresh user data on every request so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db, logger))

	// Stores
	usersStore := userstore.New(db)
	sessionsStore := sessions.New(db)
	attemptsStore := loginattempts.New(db)
	settingsStore := securitysettings.New(db)
	reactionsStore := reactionstore.New(db)
	announcementsStore := announcementstore.New(db)
	commentsStore := commentstore.New(db)
	teachersStore := teacherstore.New(db)
	reviewsStore := reviewstore.New(db)
	reportsStore := reports.New(db)
	nameChangesStore := namechanges.New(db)
	oauthStates := oauthstate.New(db)
	verifyStore := emailverify.New(db)

	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:       appCfg.AuditLogAuth,
		Moderation: appCfg.AuditLogModeration,
		Admin:      appCfg.AuditLogAdmin,
	})

	settingsProvider := throttle.NewSettingsProvider(settingsStore, logger)
	loginThrottle := throttle.New(attemptsStore, settingsProvider, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Timeout(timeouts.Long()))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// CSRF protection for browser-facing routes. The JSON API is exempt:
	// it is protected by SameSite session cookies plus the credentialed
	// CORS allow-list instead of tokens.
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey),
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("unihub_csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
			)
			jsonutil.Forbidden(w, "CSRF token invalid or missing")
		})),
	)
	r.Use(func(next http.Handler) http.Handler {
		csrfHandler := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, "/api/") || strings.HasPrefix(req.URL.Path, "/auth/google") {
				next.ServeHTTP(w, req)
				return
			}
			csrfHandler.ServeHTTP(w, req)
		})
	})

	// Health probes
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Reaction targets: each content type that can carry votes.
	reactionTargets := map[models.TargetType]reactionsfeature.TargetChecker{
		models.TargetAnnouncement: announcementsStore,
		models.TargetComment:      commentsStore,
		models.TargetTeacher:      teachersStore,
		models.TargetReview:       reviewsStore,
	}

	// Report targets: content types users can flag for moderation.
	reportTargets := map[models.TargetType]moderationfeature.TargetChecker{
		models.TargetAnnouncement: announcementsStore,
		models.TargetComment:      commentsStore,
		models.TargetReview:       reviewsStore,
	}

	registerHandler := registerfeature.NewHandler(usersStore, verifyStore, deps.Mailer, auditLogger, registerfeature.Config{
		AppName:        appCfg.AppName,
		BaseURL:        appCfg.BaseURL,
		AllowedDomains: appCfg.AllowedEmailDomains,
	}, logger)

	loginHandler := loginfeature.NewHandler(usersStore, sessionsStore, sessionMgr, loginThrottle, auditLogger, logger)

	reactionsHandler := reactionsfeature.NewHandler(reactionsStore, reactionTargets, logger)

	commentsHandler := commentsfeature.NewHandler(commentsStore, announcementsStore, reactionsStore, auditLogger, logger)
	commentsRouter := commentsfeature.Routes(commentsHandler, sessionMgr)

	announcementsHandler := announcementsfeature.NewHandler(announcementsStore, commentsStore, reactionsStore, auditLogger, logger)

	teachersHandler := teachersfeature.NewHandler(teachersStore, reviewsStore, reactionsStore, auditLogger, logger)

	moderationHandler := moderationfeature.NewHandler(
		reportsStore,
		nameChangesStore,
		usersStore,
		sessionsStore,
		reportTargets,
		deps.Mailer,
		auditLogger,
		moderationfeature.Config{
			AppName:      appCfg.AppName,
			ContactEmail: appCfg.ContactEmail,
		},
		logger,
	)

	securityHandler := securityapifeature.NewHandler(settingsStore, settingsProvider, auditLogger, logger)

	profileHandler := profilefeature.NewHandler(usersStore, sessionsStore, deps.Mailer, auditLogger, profilefeature.Config{
		AppName: appCfg.AppName,
		BaseURL: appCfg.BaseURL,
	}, logger)

	// JSON API
	api := chi.NewRouter()
	if len(appCfg.CORSOrigins) > 0 {
		api.Use(apicors.WithOrigins(appCfg.CORSOrigins...))
	}

	api.Mount("/register", registerfeature.Routes(registerHandler))
	api.Mount("/reactions", reactionsfeature.Routes(reactionsHandler, sessionMgr))
	api.Mount("/announcements", announcementsfeature.Routes(announcementsHandler, sessionMgr, commentsRouter))
	api.Mount("/teachers", teachersfeature.Routes(teachersHandler, sessionMgr))
	api.Mount("/reports", moderationfeature.ReportRoutes(moderationHandler, sessionMgr))
	api.Mount("/name-changes", moderationfeature.NameChangeRoutes(moderationHandler, sessionMgr))
	api.Mount("/moderation", moderationfeature.ModerationRoutes(moderationHandler, sessionMgr))
	api.Mount("/admin/users", moderationfeature.AdminUserRoutes(moderationHandler, sessionMgr))
	api.Mount("/admin/security", securityapifeature.Routes(securityHandler, sessionMgr))
	api.Mount("/me", profilefeature.Routes(profileHandler, sessionMgr))

	// Sign-in endpoints register at the subtree root: /api/login, /api/logout.
	api.Mount("/", loginfeature.Routes(loginHandler, sessionMgr))

	r.Mount("/api", api)

	// Google OAuth (only when configured)
	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" {
		googleHandler := authgooglefeature.NewHandler(
			usersStore,
			sessionsStore,
			oauthStates,
			sessionMgr,
			loginThrottle,
			auditLogger,
			authgooglefeature.Config{
				ClientID:       appCfg.GoogleClientID,
				ClientSecret:   appCfg.GoogleClientSecret,
				BaseURL:        appCfg.BaseURL,
				AllowedDomains: appCfg.AllowedEmailDomains,
			},
			logger,
		)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		logger.Info("Google sign-in enabled",
			zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		jsonutil.NotFound(w, "not found")
	})

	return r, nil
}
