// internal/domain/models/loginattempt.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Login failure reasons
const (
	FailureInvalidCredentials = "invalid_credentials"
	FailureUserNotFound       = "user_not_found"
	FailureAccountDisabled    = "account_disabled"
	FailureAccountLocked      = "account_locked"
)

// LoginAttempt is one append-only audit record per login attempt.
// Records are never updated; the "currently locked" state is derived from
// the trailing window of failed attempts, not stored as a mutable flag.
type LoginAttempt struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"` // normalized lowercase
	IPAddress     string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent     string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Success       bool               `bson:"success" json:"success"`
	FailureReason string             `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	IsBlocked     bool               `bson:"is_blocked" json:"is_blocked"` // synthetic record written while locked out
	BlockedUntil  *time.Time         `bson:"blocked_until,omitempty" json:"blocked_until,omitempty"`
	AttemptTime   time.Time          `bson:"attempt_time" json:"attempt_time"`
}
