// internal/app/store/comments/store.go
package comments

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

// Store provides comment persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates a comments store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("comments")}
}

// EnsureIndexes creates the indexes the comments collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "announcement_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_comments_announcement_time"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}},
			Options: options.Index().SetName("idx_comments_author"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create comment indexes", zap.Error(err))
		return err
	}
	return nil
}

// CreateInput holds the fields for creating a comment.
// Body must already be sanitized by the caller.
type CreateInput struct {
	AnnouncementID primitive.ObjectID
	AuthorID       primitive.ObjectID
	AuthorName     string
	Body           string
}

// Create inserts a new comment.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Comment, error) {
	now := time.Now()
	c := &models.Comment{
		ID:             primitive.NewObjectID(),
		AnnouncementID: in.AnnouncementID,
		AuthorID:       in.AuthorID,
		AuthorName:     in.AuthorName,
		Body:           in.Body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID returns the comment with the given id, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists reports whether a comment with the given id exists.
// Used to validate reaction targets.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByAnnouncement returns an announcement's comments, oldest first.
func (s *Store) ListByAnnouncement(ctx context.Context, announcementID primitive.ObjectID, limit, page int) ([]models.Comment, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, bson.M{"announcement_id": announcementID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Comment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByAnnouncement returns the number of comments on an announcement.
func (s *Store) CountByAnnouncement(ctx context.Context, announcementID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"announcement_id": announcementID})
}

// UpdateBody replaces a comment's body. Only the comment author may edit;
// the filter enforces that at the storage level.
func (s *Store) UpdateBody(ctx context.Context, id, authorID primitive.ObjectID, body string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "author_id": authorID},
		bson.M{"$set": bson.M{"body": body, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a comment. Callers are responsible for cascading
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

// DeleteByAnnouncement removes all comments on an announcement and returns
// their ids so callers can cascade reaction cleanup.
func (s *Store) DeleteByAnnouncement(ctx context.Context, announcementID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"announcement_id": announcementID},
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

	if _, err := s.c.DeleteMany(ctx, bson.M{"announcement_id": announcementID}); err != nil {
		return nil, err
	}
	return ids, nil
}
