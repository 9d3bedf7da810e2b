// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds application-level configuration for UniHub.
//
// WAFFLE's CoreConfig covers framework concerns (ports, TLS, logging,
// CORS, timeouts). Everything specific to this service lives here and is
// passed to the lifecycle hooks.
type AppConfig struct {
	// MongoDB connection
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookies
	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration

	// CSRF protection for browser-facing routes
	CSRFKey string

	// Branding and links in emails and error pages
	AppName      string
	BaseURL      string
	ContactEmail string

	// Institutional email domains allowed to register and sign in,
	// e.g. ["lnu.edu.ua", "ukr.edu.ua"].
	AllowedEmailDomains []string

	// Front-end origins allowed to call the session-authenticated API
	// with credentials.
	CORSOrigins []string

	// SMTP settings for outbound mail
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Email verification code lifetime
	EmailVerifyExpiry time.Duration

	// Audit logging destinations per event class.
	// Values: "all" (MongoDB + zap), "db", "log", "off".
	AuditLogAuth       string
	AuditLogModeration string
	AuditLogAdmin      string

	// Google OAuth (optional; sign-in only, never registration)
	GoogleClientID     string
	GoogleClientSecret string

	// Admin account seeded on startup when email and password are set
	SeedAdminEmail    string
	SeedAdminName     string
	SeedAdminPassword string

	// How long raw login attempt records are kept before pruning
	LoginAttemptRetention time.Duration
}
