// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	userstore "github.com/unihub-ua/unihub/internal/app/store/users"
	"github.com/unihub-ua/unihub/internal/app/system/authutil"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/app/system/tasks"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Startup runs once after schema setup completes, before the HTTP
// handler is built. It seeds the admin account when configured and
// starts the background task runner.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SeedAdminEmail != "" {
		if err := ensureAdminUser(ctx, deps.MongoDatabase, appCfg, logger); err != nil {
			logger.Error("failed to seed admin user", zap.Error(err))
			return err
		}
	}

	startTaskRunner(deps.MongoDatabase, appCfg, logger)
	return nil
}

// taskRunner is the global runner instance, stopped in Shutdown.
var taskRunner *tasks.Runner

func startTaskRunner(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.LoginAttemptRetentionJob(db, logger, appCfg.LoginAttemptRetention))
	taskRunner.Register(tasks.SessionCleanupJob(db, logger))
	taskRunner.Register(tasks.OAuthStateCleanupJob(db, logger))
	taskRunner.Register(tasks.EmailVerificationCleanupJob(db, logger))

	taskRunner.Start()
}

// ensureAdminUser makes sure an active admin account exists for the
// configured email. An existing account is promoted and activated; a
// missing one is created with the configured password.
func ensureAdminUser(ctx context.Context, db *mongo.Database, appCfg AppConfig, logger *zap.Logger) error {
	store := userstore.New(db)
	email := normalize.Email(appCfg.SeedAdminEmail)

	existing, err := store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Role == models.RoleAdmin && existing.Status == models.StatusActive {
			logger.Debug("admin user already configured", zap.String("email", email))
			return nil
		}
		if existing.Role != models.RoleAdmin {
			if err := store.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return err
			}
		}
		if existing.Status != models.StatusActive {
			if err := store.SetStatus(ctx, existing.ID, models.StatusActive); err != nil {
				return err
			}
		}
		logger.Info("promoted existing user to admin",
			zap.String("email", email),
			zap.String("user_id", existing.ID.Hex()),
			zap.String("previous_role", existing.Role))
		return nil
	}

	hash, err := authutil.HashPassword(appCfg.SeedAdminPassword)
	if err != nil {
		return err
	}

	name := appCfg.SeedAdminName
	if name == "" {
		name = "Administrator"
	}

	created, err := store.Create(ctx, userstore.CreateInput{
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	})
	if err != nil {
		// Lost a race with a concurrent startup; the account exists.
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return nil
		}
		return err
	}

	logger.Info("created admin user",
		zap.String("email", email),
		zap.String("user_id", created.ID.Hex()))
	return nil
}
