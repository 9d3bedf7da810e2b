// internal/app/store/reviews/store.go
package reviews

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/unihub-ua/unihub/internal/app/store/storeutil"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Store provides teacher review persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates a reviews store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reviews")}
}

// EnsureIndexes creates the indexes the reviews collection relies on.
// The unique index enforces one review per (teacher, author) pair.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "teacher_id", Value: 1},
				{Key: "author_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_review_teacher_author"),
		},
		{
			Keys: bson.D{
				{Key: "teacher_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_reviews_teacher_time"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create review indexes", zap.Error(err))
		return err
	}
	return nil
}

// UpsertInput holds the fields for submitting a review.
// Body must already be sanitized by the caller.
type UpsertInput struct {
	TeacherID  primitive.ObjectID
	AuthorID   primitive.ObjectID
	AuthorName string
	Rating     int
	Body       string
}

// Upsert creates the author's review of a teacher, or replaces the
// existing one. CreatedAt of the original review is preserved on replace.
func (s *Store) Upsert(ctx context.Context, in UpsertInput) (*models.Review, error) {
	now := time.Now()
	filter := bson.M{"teacher_id": in.TeacherID, "author_id": in.AuthorID}
	update := bson.M{
		"$set": bson.M{
			"author_name": in.AuthorName,
			"rating":      in.Rating,
			"body":        in.Body,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{
			"teacher_id": in.TeacherID,
			"author_id":  in.AuthorID,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var r models.Review
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByID returns the review with the given id, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var r models.Review
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByTeacherAndAuthor returns the author's review of a teacher,
// or nil if none exists.
func (s *Store) GetByTeacherAndAuthor(ctx context.Context, teacherID, authorID primitive.ObjectID) (*models.Review, error) {
	var r models.Review
	err := s.c.FindOne(ctx, bson.M{"teacher_id": teacherID, "author_id": authorID}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Exists reports whether a review with the given id exists.
// Used to validate reaction targets.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByTeacher returns a teacher's reviews, newest first.
func (s *Store) ListByTeacher(ctx context.Context, teacherID primitive.ObjectID, limit, page int) ([]models.Review, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, bson.M{"teacher_id": teacherID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Review
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RatingSummary is the aggregate rating for one teacher, computed on read.
type RatingSummary struct {
	Count   int64   `bson:"count" json:"count"`
	Average float64 `bson:"average" json:"average"`
}

// SummaryFor computes the review count and average rating for a teacher.
func (s *Store) SummaryFor(ctx context.Context, teacherID primitive.ObjectID) (RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"teacher_id": teacherID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"count":   bson.M{"$sum": 1},
			"average": bson.M{"$avg": "$rating"},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return RatingSummary{}, err
	}
	defer cur.Close(ctx)

	var rows []RatingSummary
	if err := cur.All(ctx, &rows); err != nil {
		return RatingSummary{}, err
	}
	if len(rows) == 0 {
		return RatingSummary{}, nil
	}
	return rows[0], nil
}

// Delete removes a review. Callers are responsible for cascading
// removal of reactions.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByTeacher removes all reviews of a teacher and returns their ids
// so callers can cascade reaction cleanup.
func (s *Store) DeleteByTeacher(ctx context.Context, teacherID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"teacher_id": teacherID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"teacher_id": teacherID}); err != nil {
		return nil, err
	}
	return ids, nil
}
