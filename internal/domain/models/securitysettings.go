// internal/domain/models/securitysettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Security settings defaults, applied when no record has been created yet.
const (
	DefaultMaxLoginAttempts      = 5
	DefaultLockoutMinutes        = 15
	DefaultSessionTimeoutMinutes = 1440 // 24h
	DefaultIdleTimeoutMinutes    = 30
)

// SecuritySettings is a runtime-tunable security configuration record.
// Records are append-only; the current configuration is the most recently
// created record, letting admins change thresholds without a redeploy and
// keeping a history of who changed what.
type SecuritySettings struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	MaxLoginAttempts      int `bson:"max_login_attempts" json:"max_login_attempts"`
	LockoutMinutes        int `bson:"lockout_minutes" json:"lockout_minutes"`
	SessionTimeoutMinutes int `bson:"session_timeout_minutes" json:"session_timeout_minutes"`
	IdleTimeoutMinutes    int `bson:"idle_timeout_minutes" json:"idle_timeout_minutes"`

	CreatedByID   *primitive.ObjectID `bson:"created_by_id,omitempty" json:"created_by_id,omitempty"`
	CreatedByName string              `bson:"created_by_name,omitempty" json:"created_by_name,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}

// DefaultSecuritySettings returns the built-in defaults.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		MaxLoginAttempts:      DefaultMaxLoginAttempts,
		LockoutMinutes:        DefaultLockoutMinutes,
		SessionTimeoutMinutes: DefaultSessionTimeoutMinutes,
		IdleTimeoutMinutes:    DefaultIdleTimeoutMinutes,
	}
}

// LockoutDuration returns the lockout window as a duration.
func (s SecuritySettings) LockoutDuration() time.Duration {
	return time.Duration(s.LockoutMinutes) * time.Minute
}
