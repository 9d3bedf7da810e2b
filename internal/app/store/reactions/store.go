// internal/app/store/reactions/store.go
package reactions

import (
	"context"
	"time"

	"github.com/unihub-ua/unihub/internal/app/store/storeutil"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the reactions collection. The unique index on
// (target_type, target_id, user_id) is what makes concurrent toggles
// safe: at most one vote per user per target can ever exist, and racing
// inserts collide on the index rather than producing duplicates.
type Store struct {
	c *mongo.Collection
}

// New creates a new reactions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reactions")}
}

// EnsureIndexes creates the uniqueness constraint and the count path index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_reaction_target_user"),
		},
		{
			Keys: bson.D{
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
				{Key: "value", Value: 1},
			},
			Options: options.Index().SetName("idx_reaction_target_value"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Get returns the user's reaction on a target, or nil if there is none.
func (s *Store) Get(ctx context.Context, targetType models.TargetType, targetID, userID string) (*models.Reaction, error) {
	var reaction models.Reaction
	err := s.c.FindOne(ctx, bson.M{
		"target_type": targetType,
		"target_id":   targetID,
		"user_id":     userID,
	}).Decode(&reaction)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// Toggle applies one vote press and returns the user's resulting reaction
// value: value if a vote was created or flipped, 0 if an identical vote was
// removed.
//
// The state machine:
//   - no existing reaction  -> insert the vote
//   - same value exists     -> delete it (pressing the same button retracts)
//   - opposite value exists -> flip it in place
//
// A concurrent first-press race loses the insert to the unique index and
// retries once through the existing-vote path, so double-submits converge
// instead of erroring.
func (s *Store) Toggle(ctx context.Context, targetType models.TargetType, targetID, userID string, value int) (int, error) {
	const maxAttempts = 2

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		existing, err := s.Get(ctx, targetType, targetID, userID)
		if err != nil {
			return 0, err
		}

		now := time.Now().UTC()

		if existing == nil {
			reaction := models.Reaction{
				ID:         primitive.NewObjectID(),
				TargetType: targetType,
				TargetID:   targetID,
				UserID:     userID,
				Value:      value,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			_, err := s.c.InsertOne(ctx, reaction)
			if err == nil {
				return value, nil
			}
			if storeutil.IsDup(err) {
				// Lost a first-press race. The other vote is now the
				// existing one; re-read and go through the toggle paths.
				lastErr = err
				continue
			}
			return 0, err
		}

		if existing.Value == value {
			// Same button pressed again: retract the vote. Matching on the
			// stored value keeps a concurrent flip from being silently
			// deleted; if nothing matched, the state moved, so retry.
			result, err := s.c.DeleteOne(ctx, bson.M{
				"_id":   existing.ID,
				"value": value,
			})
			if err != nil {
				return 0, err
			}
			if result.DeletedCount == 0 {
				continue
			}
			return 0, nil
		}

		// Opposite vote exists: flip it in place.
		result, err := s.c.UpdateOne(ctx,
			bson.M{"_id": existing.ID, "value": existing.Value},
			bson.M{"$set": bson.M{
				"value":      value,
				"updated_at": now,
			}},
		)
		if err != nil {
			return 0, err
		}
		if result.MatchedCount == 0 {
			continue
		}
		return value, nil
	}

	if lastErr != nil {
		return 0, lastErr
	}
	// State kept moving under us for every attempt. A final read settles
	// what the user's vote ended up as.
	final, err := s.Get(ctx, targetType, targetID, userID)
	if err != nil {
		return 0, err
	}
	if final == nil {
		return 0, nil
	}
	return final.Value, nil
}

// CountsFor computes the aggregate reaction counts for a target at read
// time. There are no denormalized counters to drift; the index on
// (target_type, target_id, value) keeps the group cheap. userID may be
// empty for anonymous readers, in which case UserReaction is 0.
func (s *Store) CountsFor(ctx context.Context, targetType models.TargetType, targetID, userID string) (*models.ReactionCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"target_type": targetType,
			"target_id":   targetID,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"likes": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$value", models.ValueLike}}, 1, 0},
			}},
			"dislikes": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$value", models.ValueDislike}}, 1, 0},
			}},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	counts := &models.ReactionCounts{}
	if cur.Next(ctx) {
		var row struct {
			Likes    int64 `bson:"likes"`
			Dislikes int64 `bson:"dislikes"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts.Likes = row.Likes
		counts.Dislikes = row.Dislikes
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	counts.Score = counts.Likes - counts.Dislikes

	if userID != "" {
		own, err := s.Get(ctx, targetType, targetID, userID)
		if err != nil {
			return nil, err
		}
		if own != nil {
			counts.UserReaction = own.Value
		}
	}

	return counts, nil
}

// CountsForMany computes counts for a batch of targets of one type in a
// single aggregation, keyed by target id. Targets with no reactions are
// present in the result with zero counts.
func (s *Store) CountsForMany(ctx context.Context, targetType models.TargetType, targetIDs []string, userID string) (map[string]*models.ReactionCounts, error) {
	result := make(map[string]*models.ReactionCounts, len(targetIDs))
	for _, id := range targetIDs {
		result[id] = &models.ReactionCounts{}
	}
	if len(targetIDs) == 0 {
		return result, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"target_type": targetType,
			"target_id":   bson.M{"$in": targetIDs},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": "$target_id",
			"likes": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$value", models.ValueLike}}, 1, 0},
			}},
			"dislikes": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$value", models.ValueDislike}}, 1, 0},
			}},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			TargetID string `bson:"_id"`
			Likes    int64  `bson:"likes"`
			Dislikes int64  `bson:"dislikes"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.TargetID] = &models.ReactionCounts{
			Likes:    row.Likes,
			Dislikes: row.Dislikes,
			Score:    row.Likes - row.Dislikes,
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	if userID != "" {
		cur, err := s.c.Find(ctx, bson.M{
			"target_type": targetType,
			"target_id":   bson.M{"$in": targetIDs},
			"user_id":     userID,
		})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		var own []models.Reaction
		if err := cur.All(ctx, &own); err != nil {
			return nil, err
		}
		for _, r := range own {
			if c, ok := result[r.TargetID]; ok {
				c.UserReaction = r.Value
			}
		}
	}

	return result, nil
}

// DeleteForTarget removes all reactions on a target. Called when the
// target itself is deleted so orphaned votes don't linger.
func (s *Store) DeleteForTarget(ctx context.Context, targetType models.TargetType, targetID string) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"target_type": targetType,
		"target_id":   targetID,
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
