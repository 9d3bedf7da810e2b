// internal/domain/models/namechange.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Name change request statuses
const (
	NameChangePending  = "pending"
	NameChangeApproved = "approved"
	NameChangeRejected = "rejected"
)

// NameChangeRequest is a user's request to change their display name,
// reviewed by a moderator. Approval applies the new name to the user record.
type NameChangeRequest struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID  `bson:"user_id" json:"user_id"`
	OldName  string              `bson:"old_name" json:"old_name"`
	NewName  string              `bson:"new_name" json:"new_name"`
	Reason   string              `bson:"reason,omitempty" json:"reason,omitempty"`
	Status   string              `bson:"status" json:"status"` // pending, approved, rejected
	Reviewer *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	Note     string              `bson:"note,omitempty" json:"note,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	DecidedAt *time.Time `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}
