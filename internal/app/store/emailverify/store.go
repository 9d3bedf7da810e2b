// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultTTL is how long a verification link stays valid.
const DefaultTTL = 24 * time.Hour

// Record is a pending email verification token for a newly registered user.
type Record struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Email     string             `bson:"email"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// Store provides email verification token persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates an email verification store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("email_verifications")}
}

// EnsureIndexes creates the indexes the email_verifications collection
// relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_emailverify_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_emailverify_user"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_emailverify_expires"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create email verification indexes", zap.Error(err))
		return err
	}
	return nil
}

// Issue generates a verification token for a user, replacing any earlier
// outstanding tokens so only the latest link works.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID, email string) (*Record, error) {
	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return nil, err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &Record{
		ID:        primitive.NewObjectID(),
		Token:     base64.RawURLEncoding.EncodeToString(buf),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultTTL),
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Consume validates and removes a verification token, returning its record.
// Unknown or expired tokens return nil.
func (s *Store) Consume(ctx context.Context, token string) (*Record, error) {
	var rec Record
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteExpired removes expired tokens. Backup for the TTL index, run from
// the background cleanup job.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
