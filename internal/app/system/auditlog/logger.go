// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/unihub-ua/unihub/internal/app/store/audit"
	"github.com/unihub-ua/unihub/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (register, login, logout, password).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Moderation controls logging for moderation events (reports, content removal, name changes).
	// Values: "all", "db", "log", "off"
	Moderation string
	// Admin controls logging for admin events (role changes, security settings).
	// Values: "all", "db", "log", "off"
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryModeration:
		setting = l.config.Moderation
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all" // Default to logging everything for unknown categories
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// Registered logs a new account registration.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"email": email,
		},
	})
}

// EmailVerified logs a successful email verification.
func (l *Logger) EmailVerified(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventEmailVerified,
		UserID:    &userID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"email": email,
		},
	})
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"email": email,
		},
	})
}

// LoginFailedUserNotFound logs a failed login due to user not found.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            network.GetClientIP(r),
		UserAgent:     network.GetUserAgent(r),
		Success:       false,
		FailureReason: "user not found",
		Details: map[string]string{
			"attempted_email": attemptedEmail,
		},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		IP:            network.GetClientIP(r),
		UserAgent:     network.GetUserAgent(r),
		Success:       false,
		FailureReason: "wrong password",
		Details: map[string]string{
			"email": email,
		},
	})
}

// LoginFailedUserDisabled logs a failed login due to disabled account.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserDisabled,
		UserID:        &userID,
		IP:            network.GetClientIP(r),
		UserAgent:     network.GetUserAgent(r),
		Success:       false,
		FailureReason: "user disabled",
		Details: map[string]string{
			"email": email,
		},
	})
}

// LoginLockedOut logs a login attempt rejected because the account is locked.
func (l *Logger) LoginLockedOut(ctx context.Context, r *http.Request, email string, retryAfterMinutes int) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginLockedOut,
		IP:            network.GetClientIP(r),
		UserAgent:     network.GetUserAgent(r),
		Success:       false,
		FailureReason: "account locked",
		Details: map[string]string{
			"email":               email,
			"retry_after_minutes": intToString(retryAfterMinutes),
		},
	})
}

// Logout logs a user logout.
// Accepts string IDs from SessionUser and converts them to ObjectIDs.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID

	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}

	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
	})
}

// PasswordChanged logs a password change.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		UserID:    &userID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
	})
}

// GoogleSignIn logs a successful Google OAuth sign-in.
func (l *Logger) GoogleSignIn(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventGoogleSignIn,
		UserID:    &userID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"email": email,
		},
	})
}

// --- Moderation Events ---

// ReportResolved logs when a moderator resolves a report.
func (l *Logger) ReportResolved(ctx context.Context, r *http.Request, actorID primitive.ObjectID, caseNumber, resolution string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventReportResolved,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"case_number": caseNumber,
			"resolution":  resolution,
		},
	})
}

// ReportDismissed logs when a moderator dismisses a report.
func (l *Logger) ReportDismissed(ctx context.Context, r *http.Request, actorID primitive.ObjectID, caseNumber string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventReportDismissed,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"case_number": caseNumber,
		},
	})
}

// ContentRemoved logs when a moderator removes user content.
func (l *Logger) ContentRemoved(ctx context.Context, r *http.Request, actorID primitive.ObjectID, targetType, targetID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventContentRemoved,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"target_type": targetType,
			"target_id":   targetID,
		},
	})
}

// NameChangeReviewed logs a moderator decision on a name change request.
func (l *Logger) NameChangeReviewed(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, approved bool) {
	eventType := audit.EventNameChangeRejected
	if approved {
		eventType = audit.EventNameChangeApproved
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: eventType,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
	})
}

// --- Admin Events ---

// UserRoleChanged logs when an admin changes a user's role.
func (l *Logger) UserRoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, oldRole, newRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserRoleChanged,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"old_role": oldRole,
			"new_role": newRole,
		},
	})
}

// UserDisabled logs when an admin disables a user account.
func (l *Logger) UserDisabled(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserDisabled,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
	})
}

// UserEnabled logs when an admin enables a user account.
func (l *Logger) UserEnabled(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserEnabled,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
	})
}

// SecuritySettingsCreated logs when an admin appends a new security settings record.
func (l *Logger) SecuritySettingsCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventSecuritySettingsCreated,
		ActorID:   &actorID,
		IP:        network.GetClientIP(r),
		UserAgent: network.GetUserAgent(r),
		Success:   true,
		Details: map[string]string{
			"fields_changed": fieldsChanged,
		},
	})
}

// --- Helper functions ---

func intToString(i int) string {
	return strconv.Itoa(i)
}
