// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables, so the MongoDB
// URI is read from UNIHUB_MONGO_URI and so on.
const EnvVarPrefix = "UNIHUB"

// appConfigKeys defines the configuration keys for this application.
// Each key can come from a config file (mongo_uri), an environment
// variable (UNIHUB_MONGO_URI) or a command-line flag (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "unihub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "unihub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	{Name: "app_name", Default: "UniHub", Desc: "Application display name used in emails"},
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL for links in emails and OAuth redirects"},
	{Name: "contact_email", Default: "support@unihub.ua", Desc: "Support contact shown in account emails"},

	{Name: "allowed_email_domains", Default: "lnu.edu.ua", Desc: "Comma-separated institutional email domains allowed to register"},
	{Name: "cors_origins", Default: "", Desc: "Comma-separated front-end origins allowed to call the API with credentials"},

	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@unihub.ua", Desc: "From email address"},
	{Name: "mail_from_name", Default: "UniHub", Desc: "From display name"},

	{Name: "email_verify_expiry", Default: "15m", Desc: "Email verification code expiry (e.g., 15m, 1h)"},

	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_moderation", Default: "all", Desc: "Moderation event logging: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all', 'db', 'log', or 'off'"},

	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID (blank disables Google sign-in)"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	{Name: "seed_admin_email", Default: "", Desc: "Email of admin user to create on startup"},
	{Name: "seed_admin_name", Default: "Administrator", Desc: "Name of admin user to create on startup"},
	{Name: "seed_admin_password", Default: "", Desc: "Password for the seeded admin user"},

	{Name: "login_attempt_retention", Default: "720h", Desc: "How long raw login attempt records are kept (e.g., 720h for 30 days)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// config.LoadWithAppConfig merges .env files, config files, environment
// variables (WAFFLE_* for core, UNIHUB_* for app) and command-line flags,
// with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		AppName:      appValues.String("app_name"),
		BaseURL:      appValues.String("base_url"),
		ContactEmail: appValues.String("contact_email"),

		AllowedEmailDomains: splitList(appValues.String("allowed_email_domains")),
		CORSOrigins:         splitList(appValues.String("cors_origins")),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		EmailVerifyExpiry: appValues.Duration("email_verify_expiry", 15*time.Minute),

		AuditLogAuth:       appValues.String("audit_log_auth"),
		AuditLogModeration: appValues.String("audit_log_moderation"),
		AuditLogAdmin:      appValues.String("audit_log_admin"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		SeedAdminEmail:    appValues.String("seed_admin_email"),
		SeedAdminName:     appValues.String("seed_admin_name"),
		SeedAdminPassword: appValues.String("seed_admin_password"),

		LoginAttemptRetention: appValues.Duration("login_attempt_retention", 30*24*time.Hour),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation before any
// backends are connected.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.AllowedEmailDomains) == 0 {
		return fmt.Errorf("allowed_email_domains must list at least one domain")
	}

	if appCfg.SeedAdminEmail != "" && appCfg.SeedAdminPassword == "" {
		return fmt.Errorf("seed_admin_password is required when seed_admin_email is set")
	}

	return nil
}

// splitList parses a comma-separated config value, trimming whitespace
// and dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
