// internal/domain/models/comment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a user comment on an announcement. Body is sanitized plain
// formatting only (no rich markup).
type Comment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AnnouncementID primitive.ObjectID `bson:"announcement_id" json:"announcement_id"`
	AuthorID       primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorName     string             `bson:"author_name" json:"author_name"`
	Body           string             `bson:"body" json:"body"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
