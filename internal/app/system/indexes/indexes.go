// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureReactions(ctx, db); err != nil {
		problems = append(problems, "reactions: "+err.Error())
	}
	if err := ensureLoginAttempts(ctx, db); err != nil {
		problems = append(problems, "login_attempts: "+err.Error())
	}
	if err := ensureSecuritySettings(ctx, db); err != nil {
		problems = append(problems, "security_settings: "+err.Error())
	}
	if err := ensureAnnouncements(ctx, db); err != nil {
		problems = append(problems, "announcements: "+err.Error())
	}
	if err := ensureComments(ctx, db); err != nil {
		problems = append(problems, "comments: "+err.Error())
	}
	if err := ensureTeachers(ctx, db); err != nil {
		problems = append(problems, "teachers: "+err.Error())
	}
	if err := ensureReviews(ctx, db); err != nil {
		problems = append(problems, "reviews: "+err.Error())
	}
	if err := ensureReports(ctx, db); err != nil {
		problems = append(problems, "reports: "+err.Error())
	}
	if err := ensureNameChangeRequests(ctx, db); err != nil {
		problems = append(problems, "name_change_requests: "+err.Error())
	}
	if err := ensureAuditLogs(ctx, db); err != nil {
		problems = append(problems, "audit_logs: "+err.Error())
	}
	if err := ensureSessions(ctx, db); err != nil {
		problems = append(problems, "sessions: "+err.Error())
	}
	if err := ensureOAuthStates(ctx, db); err != nil {
		problems = append(problems, "oauth_states: "+err.Error())
	}
	if err := ensureEmailVerifications(ctx, db); err != nil {
		problems = append(problems, "email_verifications: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	// Load existing indexes once per collection.
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
	}

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// Same keys and options already present, reuse.
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig))
			continue
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One account per institutional email
		{
			Keys: bson.D{
				{Key: "email_ci", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email_ci"),
		},
		// User list queries: role + status + name sort
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_fullnameci_id"),
		},
	})
}

func ensureReactions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("reactions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One reaction per user per target. This is the constraint that
		// makes concurrent toggles safe: racing inserts collide here and
		// the loser retries through the update path.
		{
			Keys: bson.D{
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_reaction_target_user"),
		},
		// Count aggregation path
		{
			Keys: bson.D{
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
				{Key: "value", Value: 1},
			},
			Options: options.Index().SetName("idx_reaction_target_value"),
		},
	})
}

func ensureLoginAttempts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("login_attempts")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Trailing-window failure queries by email
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "attempt_time", Value: -1},
			},
			Options: options.Index().SetName("idx_attempts_email_time"),
		},
		// Time-based retention pruning and dashboards
		{
			Keys: bson.D{
				{Key: "attempt_time", Value: -1},
			},
			Options: options.Index().SetName("idx_attempts_time"),
		},
	})
}

func ensureSecuritySettings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("security_settings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Most-recent-record lookup
		{
			Keys: bson.D{
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_secsettings_created"),
		},
	})
}

func ensureAnnouncements(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("announcements")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Feed queries: newest first, optionally by faculty
		{
			Keys: bson.D{
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_announce_created"),
		},
		{
			Keys: bson.D{
				{Key: "faculty", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_announce_faculty_created"),
		},
		// Author listing
		{
			Keys: bson.D{
				{Key: "author_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_announce_author_created"),
		},
	})
}

func ensureComments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("comments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Comments for an announcement, oldest first
		{
			Keys: bson.D{
				{Key: "announcement_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_comment_announcement_created"),
		},
		// Author listing
		{
			Keys: bson.D{
				{Key: "author_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_comment_author_created"),
		},
	})
}

func ensureTeachers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("teachers")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Catalog search by folded name
		{
			Keys: bson.D{
				{Key: "full_name_ci", Value: 1},
			},
			Options: options.Index().SetName("idx_teacher_fullnameci"),
		},
		{
			Keys: bson.D{
				{Key: "faculty", Value: 1},
				{Key: "full_name_ci", Value: 1},
			},
			Options: options.Index().SetName("idx_teacher_faculty_name"),
		},
	})
}

func ensureReviews(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("reviews")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One review per author per teacher
		{
			Keys: bson.D{
				{Key: "teacher_id", Value: 1},
				{Key: "author_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_review_teacher_author"),
		},
		// Review listing per teacher, newest first
		{
			Keys: bson.D{
				{Key: "teacher_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_review_teacher_created"),
		},
	})
}

func ensureReports(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("reports")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Case lookup
		{
			Keys: bson.D{
				{Key: "case_number", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_report_case_number"),
		},
		// Moderation queue: open reports, oldest first
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_report_status_created"),
		},
		// Reports against a target
		{
			Keys: bson.D{
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
			},
			Options: options.Index().SetName("idx_report_target"),
		},
	})
}

func ensureNameChangeRequests(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("name_change_requests")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_namechange_status_created"),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_namechange_user_created"),
		},
	})
}

func ensureAuditLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Time-based queries (most common)
		{
			Keys: bson.D{
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_created"),
		},
		// Category + time queries
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_created"),
		},
		// User-specific audit trail
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_user_created"),
		},
		// Actor-specific audit trail
		{
			Keys: bson.D{
				{Key: "actor_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_actor_created"),
		},
	})
}

func ensureSessions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("sessions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Lookup by token (unique)
		{
			Keys: bson.D{
				{Key: "token", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_session_token"),
		},
		// Lookup by user
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetName("idx_session_user"),
		},
		// TTL index for automatic cleanup
		{
			Keys: bson.D{
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_session_ttl"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("oauth_states")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Unique state token
		{
			Keys: bson.D{
				{Key: "state", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		// TTL index for auto-cleanup of expired states
		{
			Keys: bson.D{
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_expires_ttl"),
		},
	})
}

func ensureEmailVerifications(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("email_verifications")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// TTL index for auto-cleanup of expired verifications
		{
			Keys: bson.D{
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().
				SetExpireAfterSeconds(0).
				SetName("idx_emailverify_expires_ttl"),
		},
		// Unique token (prevents token reuse)
		{
			Keys: bson.D{
				{Key: "token", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_emailverify_token"),
		},
		// Lookup by user_id (for verification and cleanup)
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().
				SetName("idx_emailverify_user"),
		},
	})
}
