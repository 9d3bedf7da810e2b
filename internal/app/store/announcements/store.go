// internal/app/store/announcements/store.go
package announcements

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
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Store provides announcement persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates an announcements store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("announcements")}
}

// EnsureIndexes creates the indexes the announcements collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "published", Value: 1},
				{Key: "pinned", Value: -1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_announcements_listing"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}},
			Options: options.Index().SetName("idx_announcements_author"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create announcement indexes", zap.Error(err))
		return err
	}
	return nil
}

// CreateInput holds the fields for creating an announcement.
// Body must already be sanitized by the caller.
type CreateInput struct {
	Title      string
	Body       string
	AuthorID   primitive.ObjectID
	AuthorName string
	Pinned     bool
	Published  bool
}

// Create inserts a new announcement.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Announcement, error) {
	now := time.Now()
	a := &models.Announcement{
		ID:         primitive.NewObjectID(),
		Title:      normalize.Name(in.Title),
		Body:       in.Body,
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		Pinned:     in.Pinned,
		Published:  in.Published,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateInput holds optional fields for updating an announcement.
// Nil pointers leave the stored value unchanged.
type UpdateInput struct {
	Title     *string
	Body      *string
	Pinned    *bool
	Published *bool
}

// Update applies the non-nil fields of in to the announcement.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}
	if in.Title != nil {
		set["title"] = normalize.Name(*in.Title)
	}
	if in.Body != nil {
		set["body"] = *in.Body
	}
	if in.Pinned != nil {
		set["pinned"] = *in.Pinned
	}
	if in.Published != nil {
		set["published"] = *in.Published
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetByID returns the announcement with the given id, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	var a models.Announcement
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Exists reports whether a published announcement with the given id exists.
// Used to validate reaction and comment targets.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id, "published": true})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPublished returns published announcements, pinned first, newest first.
func (s *Store) ListPublished(ctx context.Context, limit, page int) ([]models.Announcement, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, bson.M{"published": true}, options.Find().
		SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Announcement
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns all announcements including drafts, newest first.
// Moderator view.
func (s *Store) ListAll(ctx context.Context, limit, page int) ([]models.Announcement, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Announcement
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountPublished returns the number of published announcements.
func (s *Store) CountPublished(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"published": true})
}

// Delete removes an announcement. Callers are responsible for cascading
// removal of comments and reactions.
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
