// internal/app/store/users/fetcher.go
package users

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/unihub-ua/unihub/internal/app/system/auth"
	"github.com/unihub-ua/unihub/internal/app/system/timeouts"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Fetcher loads session users for the auth middleware.
// It satisfies auth.UserFetcher.
type Fetcher struct {
	c      *mongo.Collection
	logger *zap.Logger
}

// NewFetcher creates a session user fetcher backed by db.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{c: db.Collection("users"), logger: logger}
}

// FetchUser loads the minimal user fields needed for a session.
// Returns nil for unknown or disabled users so stale sessions get cleared;
// lookup failures are logged and also return nil.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u struct {
		ID       primitive.ObjectID `bson:"_id"`
		FullName string             `bson:"full_name"`
		Email    string             `bson:"email"`
		Role     string             `bson:"role"`
		Status   string             `bson:"status"`
	}
	err = f.c.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{
		"full_name": 1,
		"email":     1,
		"role":      1,
		"status":    1,
	})).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		f.logger.Error("failed to fetch session user",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil
	}
	if u.Status == models.StatusDisabled {
		return nil
	}

	return &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
}
