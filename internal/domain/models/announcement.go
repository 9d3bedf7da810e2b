// internal/domain/models/announcement.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Announcement is a post authored by a moderator or admin, visible to all
// signed-in users. Body is stored as sanitized HTML.
type Announcement struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Body       string             `bson:"body" json:"body"`
	AuthorID   primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorName string             `bson:"author_name" json:"author_name"`
	Pinned     bool               `bson:"pinned" json:"pinned"`
	Published  bool               `bson:"published" json:"published"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
