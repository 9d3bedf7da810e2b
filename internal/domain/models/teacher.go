// internal/domain/models/teacher.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Teacher is a faculty member profile that students can review and react to.
// Aggregate like/dislike counts are computed from the reactions collection on
// read; no counters are denormalized onto this document.
type Teacher struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Faculty    string             `bson:"faculty" json:"faculty"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	Position   string             `bson:"position,omitempty" json:"position,omitempty"` // lecturer, docent, professor
	Bio        string             `bson:"bio,omitempty" json:"bio,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
