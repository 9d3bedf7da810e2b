// internal/app/store/oauthstate/store.go
package oauthstate

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

// DefaultTTL bounds how long an OAuth round trip may take.
const DefaultTTL = 10 * time.Minute

// Record is a one-time OAuth state nonce issued before redirecting to the
// provider and consumed on callback.
type Record struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	State     string             `bson:"state"`
	Redirect  string             `bson:"redirect,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// Store provides OAuth state persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates an OAuth state store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states")}
}

// EnsureIndexes creates the indexes the oauth_states collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauth_expires"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create oauth state indexes", zap.Error(err))
		return err
	}
	return nil
}

// Issue generates and stores a new state nonce.
func (s *Store) Issue(ctx context.Context, redirect string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	now := time.Now()
	rec := &Record{
		ID:        primitive.NewObjectID(),
		State:     state,
		Redirect:  redirect,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultTTL),
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return "", err
	}
	return state, nil
}

// Consume validates and removes a state nonce, returning its record.
// A nonce can be consumed exactly once; unknown or expired states return
// nil so callers treat the callback as forged.
func (s *Store) Consume(ctx context.Context, state string) (*Record, error) {
	var rec Record
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
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

// DeleteExpired removes expired states. Backup for the TTL index, run from
// the background cleanup job.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
