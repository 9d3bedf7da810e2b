// internal/domain/models/reaction.go
package models

// Terminology: Reaction Targets
//   - TargetType / target_type: The kind of document a vote applies to
//   - TargetID / target_id: The ObjectID (_id) of that document, stored as hex
import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TargetType identifies the kind of document a reaction applies to.
type TargetType string

const (
	TargetAnnouncement TargetType = "announcement"
	TargetComment      TargetType = "comment"
	TargetTeacher      TargetType = "teacher"
	TargetReview       TargetType = "review"
)

// AllTargetTypes returns every valid reaction target kind.
func AllTargetTypes() []TargetType {
	return []TargetType{
		TargetAnnouncement,
		TargetComment,
		TargetTeacher,
		TargetReview,
	}
}

// IsValidTargetType checks if a target type is one of the supported kinds.
func IsValidTargetType(t TargetType) bool {
	for _, v := range AllTargetTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// Reaction values
const (
	ValueLike    = 1
	ValueDislike = -1
)

// IsValidReactionValue checks that a vote value is +1 or -1.
func IsValidReactionValue(v int) bool {
	return v == ValueLike || v == ValueDislike
}

// Reaction records one user's vote on one target. At most one reaction
// exists per (target_type, target_id, user_id) triple; the store enforces
// this with a unique index.
type Reaction struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TargetType TargetType         `bson:"target_type" json:"target_type"`
	TargetID   string             `bson:"target_id" json:"target_id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Value      int                `bson:"value" json:"value"` // +1 like, -1 dislike
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// ReactionCounts is the aggregate view of all reactions on one target.
// UserReaction is the requesting user's own vote (0 if none).
type ReactionCounts struct {
	Likes        int64 `bson:"likes" json:"likes"`
	Dislikes     int64 `bson:"dislikes" json:"dislikes"`
	Score        int64 `bson:"score" json:"score"` // likes - dislikes
	UserReaction int   `bson:"-" json:"user_reaction"`
}
