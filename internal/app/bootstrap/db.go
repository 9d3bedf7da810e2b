// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"

	"github.com/unihub-ua/unihub/internal/app/system/indexes"
	"github.com/unihub-ua/unihub/internal/app/system/mailer"
)

// ConnectDB establishes the MongoDB connection and builds the mailer.
//
// WAFFLE calls this after configuration is loaded, before EnsureSchema
// and Startup. The clients end up in DBDeps for use by later hooks.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	logger.Info("initialized mailer",
		zap.String("host", appCfg.MailSMTPHost),
		zap.Int("port", appCfg.MailSMTPPort),
	)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Mailer:        mail,
	}, nil
}

// EnsureSchema creates the database indexes before the HTTP handler is
// built. The unique index on (target_type, target_id, user_id) for
// reactions and the unique case-insensitive email index on users are
// correctness requirements, not just performance tuning, so startup
// aborts when they cannot be created.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}
	logger.Info("database indexes ensured")
	return nil
}
