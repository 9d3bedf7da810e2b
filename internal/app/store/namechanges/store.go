// internal/app/store/namechanges/store.go
package namechanges

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

// Errors returned by request operations.
var (
	ErrPendingExists  = errors.New("a pending name change request already exists")
	ErrAlreadyDecided = errors.New("name change request already decided")
)

// Store provides name change request persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates a name change requests store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("name_change_requests")}
}

// EnsureIndexes creates the indexes the requests collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_namechanges_user_status"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_namechanges_status_time"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create name change indexes", zap.Error(err))
		return err
	}
	return nil
}

// CreateInput holds the fields for filing a name change request.
type CreateInput struct {
	UserID  primitive.ObjectID
	OldName string
	NewName string
	Reason  string
}

// Create files a new request. A user may hold at most one pending request;
// ErrPendingExists is returned if one is already open.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.NameChangeRequest, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"user_id": in.UserID,
		"status":  models.NameChangePending,
	})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrPendingExists
	}

	r := &models.NameChangeRequest{
		ID:        primitive.NewObjectID(),
		UserID:    in.UserID,
		OldName:   normalize.Name(in.OldName),
		NewName:   normalize.Name(in.NewName),
		Reason:    in.Reason,
		Status:    models.NameChangePending,
		CreatedAt: time.Now(),
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetByID returns the request with the given id, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.NameChangeRequest, error) {
	var r models.NameChangeRequest
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Decide moves a pending request to approved or rejected. The status filter
// makes concurrent decisions race-safe; the loser gets ErrAlreadyDecided.
// Applying the approved name to the user record is the caller's job.
func (s *Store) Decide(ctx context.Context, id, reviewerID primitive.ObjectID, status, note string) (*models.NameChangeRequest, error) {
	if status != models.NameChangeApproved && status != models.NameChangeRejected {
		return nil, errors.New("invalid name change decision: " + status)
	}
	now := time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var r models.NameChangeRequest
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.NameChangePending},
		bson.M{"$set": bson.M{
			"status":      status,
			"reviewer_id": reviewerID,
			"note":        note,
			"decided_at":  now,
		}},
		opts,
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, mongo.ErrNoDocuments
		}
		return nil, ErrAlreadyDecided
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByUser returns a user's requests, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NameChangeRequest, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.NameChangeRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPending returns pending requests, oldest first so moderators work
// the queue in arrival order.
func (s *Store) ListPending(ctx context.Context, limit, page int) ([]models.NameChangeRequest, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, bson.M{"status": models.NameChangePending}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.NameChangeRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountPending returns the number of pending requests.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": models.NameChangePending})
}
