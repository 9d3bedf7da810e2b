// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a member of the university community.
//
// Auth fields:
//   - Email: institutional email, stored lowercase, unique
//   - EmailCI: folded version for case/diacritic-insensitive matching
//   - PasswordHash: bcrypt hash (never in JSON)
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped

	Email   string `bson:"email" json:"email"` // institutional email (lowercase)
	EmailCI string `bson:"email_ci" json:"-"`

	PasswordHash  string `bson:"password_hash,omitempty" json:"-"`
	EmailVerified bool   `bson:"email_verified" json:"email_verified"`

	Role   string `bson:"role" json:"role"`     // student, moderator, admin
	Status string `bson:"status" json:"status"` // pending, active, disabled

	// Student profile
	Faculty string `bson:"faculty,omitempty" json:"faculty,omitempty"`
	Course  int    `bson:"course,omitempty" json:"course,omitempty"` // year of study, 1-6

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleStudent   = "student"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User statuses
const (
	StatusPending  = "pending" // registered, email not yet verified
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleStudent,
		RoleModerator,
		RoleAdmin,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// CanModerate reports whether the role carries moderation rights.
func CanModerate(role string) bool {
	return role == RoleModerator || role == RoleAdmin
}
