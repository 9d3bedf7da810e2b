// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Record is a server side session entry. The cookie only carries the token;
// deleting the record invalidates the session regardless of the cookie.
type Record struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user_id"`
	IP        string             `bson:"ip,omitempty"`
	UserAgent string             `bson:"user_agent,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// Store provides session record persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates a sessions store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// EnsureIndexes creates the indexes the sessions collection relies on.
// The TTL index reaps expired sessions without application involvement.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_sessions_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_sessions_user"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_sessions_expires"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create session indexes", zap.Error(err))
		return err
	}
	return nil
}

// Create records a new session.
func (s *Store) Create(ctx context.Context, token string, userID primitive.ObjectID, ip, userAgent string, ttl time.Duration) (*Record, error) {
	now := time.Now()
	rec := &Record{
		ID:        primitive.NewObjectID(),
		Token:     token,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByToken returns the unexpired session with the given token,
// or nil if none exists. The TTL reaper runs on Mongo's schedule, so
// expiry is also checked here.
func (s *Store) GetByToken(ctx context.Context, token string) (*Record, error) {
	var rec Record
	err := s.c.FindOne(ctx, bson.M{
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

// Touch extends a session's expiry.
func (s *Store) Touch(ctx context.Context, token string, ttl time.Duration) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"token": token},
		bson.M{"$set": bson.M{"expires_at": time.Now().Add(ttl)}},
	)
	return err
}

// Delete removes one session by token.
func (s *Store) Delete(ctx context.Context, token string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"token": token})
	return err
}

// DeleteForUser removes all of a user's sessions. Used when an account is
// disabled or its password changes.
func (s *Store) DeleteForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteForUserExcept removes all of a user's sessions except the one
// with the given token. Used after a password change so the caller's own
// session survives.
func (s *Store) DeleteForUserExcept(ctx context.Context, userID primitive.ObjectID, token string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"user_id": userID,
		"token":   bson.M{"$ne": token},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes expired sessions. Backup for the TTL index, run
// from the background cleanup job.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
