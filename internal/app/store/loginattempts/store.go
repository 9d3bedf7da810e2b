// internal/app/store/loginattempts/store.go
package loginattempts

import (
	"context"
	"strings"
	"time"

	"github.com/unihub-ua/unihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the append-only login_attempts collection.
// Records are inserted and queried, never updated. Lock state is always
// derived from the trailing window of failures at read time.
type Store struct {
	c *mongo.Collection
}

// New creates a new login attempts Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("login_attempts")}
}

// EnsureIndexes creates indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Trailing-window queries by email
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "attempt_time", Value: -1}},
			Options: options.Index().SetName("idx_attempts_email_time"),
		},
		// Retention pruning and dashboards
		{
			Keys:    bson.D{{Key: "attempt_time", Value: -1}},
			Options: options.Index().SetName("idx_attempts_time"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// normalizeEmail lowercases and trims for consistent lookups.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a LoginAttempt. If AttemptTime is zero, it's set to time.Now().UTC().
func (s *Store) Create(ctx context.Context, attempt models.LoginAttempt) error {
	if attempt.ID.IsZero() {
		attempt.ID = primitive.NewObjectID()
	}
	if attempt.AttemptTime.IsZero() {
		attempt.AttemptTime = time.Now().UTC()
	}
	attempt.Email = normalizeEmail(attempt.Email)
	_, err := s.c.InsertOne(ctx, attempt)
	return err
}

// CountRecentFailures returns the number of failed attempts for email with
// attempt_time >= since. Synthetic lockout records (is_blocked=true) are not
// counted: they record rejection while locked, not a new credential failure,
// so they must not extend the lockout.
func (s *Store) CountRecentFailures(ctx context.Context, email string, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"email":        normalizeEmail(email),
		"success":      false,
		"is_blocked":   false,
		"attempt_time": bson.M{"$gte": since},
	})
}

// LastFailure returns the most recent non-synthetic failed attempt for email
// with attempt_time >= since, or nil if there is none.
func (s *Store) LastFailure(ctx context.Context, email string, since time.Time) (*models.LoginAttempt, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "attempt_time", Value: -1}})

	var attempt models.LoginAttempt
	err := s.c.FindOne(ctx, bson.M{
		"email":        normalizeEmail(email),
		"success":      false,
		"is_blocked":   false,
		"attempt_time": bson.M{"$gte": since},
	}, opts).Decode(&attempt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetByEmail retrieves recent attempts for an email, newest first.
func (s *Store) GetByEmail(ctx context.Context, email string, limit int64) ([]models.LoginAttempt, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "attempt_time", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"email": normalizeEmail(email)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var attempts []models.LoginAttempt
	if err := cur.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// GetByTimeRange retrieves attempts within a time range, newest first.
func (s *Store) GetByTimeRange(ctx context.Context, start, end time.Time) ([]models.LoginAttempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "attempt_time", Value: -1}})

	filter := bson.M{
		"attempt_time": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var attempts []models.LoginAttempt
	if err := cur.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// DeleteOlderThan removes attempts older than cutoff. Used by the
// retention job; returns the number of records removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"attempt_time": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
