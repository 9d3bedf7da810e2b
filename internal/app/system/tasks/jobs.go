// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// LoginAttemptRetentionJob creates a job that prunes login attempt records
// older than the retention window. Attempts are append-only, so without
// pruning the collection grows without bound. The retention window must be
// comfortably longer than any configurable lockout duration so lock state
// derivation never loses records it still needs.
func LoginAttemptRetentionJob(db *mongo.Database, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "login-attempt-retention",
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			coll := db.Collection("login_attempts")
			cutoff := time.Now().Add(-retention)
			result, err := coll.DeleteMany(ctx, bson.M{
				"attempt_time": bson.M{"$lt": cutoff},
			})
			if err != nil {
				return err
			}
			if result.DeletedCount > 0 {
				logger.Info("pruned old login attempts",
					zap.Int64("deleted", result.DeletedCount),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}

// SessionCleanupJob creates a job that removes expired sessions from the database.
func SessionCleanupJob(db *mongo.Database, logger *zap.Logger) Job {
	return Job{
		Name:     "session-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			coll := db.Collection("sessions")
			result, err := coll.DeleteMany(ctx, bson.M{
				"expires_at": bson.M{"$lt": time.Now()},
			})
			if err != nil {
				return err
			}
			if result.DeletedCount > 0 {
				logger.Info("cleaned up expired sessions",
					zap.Int64("deleted", result.DeletedCount))
			}
			return nil
		},
	}
}

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
func OAuthStateCleanupJob(db *mongo.Database, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			coll := db.Collection("oauth_states")
			result, err := coll.DeleteMany(ctx, bson.M{
				"expires_at": bson.M{"$lt": time.Now()},
			})
			if err != nil {
				return err
			}
			if result.DeletedCount > 0 {
				logger.Info("cleaned up expired oauth states",
					zap.Int64("deleted", result.DeletedCount))
			}
			return nil
		},
	}
}

// EmailVerificationCleanupJob creates a job that removes expired email verification tokens.
func EmailVerificationCleanupJob(db *mongo.Database, logger *zap.Logger) Job {
	return Job{
		Name:     "email-verification-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			coll := db.Collection("email_verifications")
			result, err := coll.DeleteMany(ctx, bson.M{
				"expires_at": bson.M{"$lt": time.Now()},
			})
			if err != nil {
				return err
			}
			if result.DeletedCount > 0 {
				logger.Info("cleaned up expired email verification tokens",
					zap.Int64("deleted", result.DeletedCount))
			}
			return nil
		},
	}
}
