// internal/app/store/securitysettings/store.go
package securitysettings

import (
	"context"
	"time"

	"github.com/unihub-ua/unihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the security_settings collection.
// The collection is append-only: updating configuration means inserting
// a new record, and the current configuration is the most recent one.
type Store struct {
	c *mongo.Collection
}

// New creates a new security settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("security_settings")}
}

// EnsureIndexes creates indexes for the most-recent-record lookup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_secsettings_created"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Latest returns the most recently created settings record.
// If no record exists, returns the built-in defaults.
func (s *Store) Latest(ctx context.Context) (*models.SecuritySettings, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var settings models.SecuritySettings
	err := s.c.FindOne(ctx, bson.M{}, opts).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		defaults := models.DefaultSecuritySettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Create appends a new settings record and returns it.
// Zero or negative fields are replaced with the built-in defaults so a
// partial record can never disable the throttle entirely.
func (s *Store) Create(ctx context.Context, settings models.SecuritySettings) (*models.SecuritySettings, error) {
	if settings.MaxLoginAttempts <= 0 {
		settings.MaxLoginAttempts = models.DefaultMaxLoginAttempts
	}
	if settings.LockoutMinutes <= 0 {
		settings.LockoutMinutes = models.DefaultLockoutMinutes
	}
	if settings.SessionTimeoutMinutes <= 0 {
		settings.SessionTimeoutMinutes = models.DefaultSessionTimeoutMinutes
	}
	if settings.IdleTimeoutMinutes <= 0 {
		settings.IdleTimeoutMinutes = models.DefaultIdleTimeoutMinutes
	}

	settings.ID = primitive.NewObjectID()
	settings.CreatedAt = time.Now().UTC()

	if _, err := s.c.InsertOne(ctx, settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// History returns past settings records, newest first.
func (s *Store) History(ctx context.Context, limit int64) ([]models.SecuritySettings, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []models.SecuritySettings
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
