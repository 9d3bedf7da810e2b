// internal/domain/models/review.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review rating bounds
const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// Review is a student's rating and writeup of a teacher. Each user may hold
// at most one review per teacher; re-submitting replaces the previous one.
type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TeacherID  primitive.ObjectID `bson:"teacher_id" json:"teacher_id"`
	AuthorID   primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorName string             `bson:"author_name" json:"author_name"`
	Rating     int                `bson:"rating" json:"rating"` // 1..5
	Body       string             `bson:"body,omitempty" json:"body,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
