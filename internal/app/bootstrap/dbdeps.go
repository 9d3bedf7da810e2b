// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/unihub-ua/unihub/internal/app/system/mailer"
)

// DBDeps holds the backend dependencies for this app.
//
// It is created in ConnectDB and passed to EnsureSchema, Startup,
// BuildHandler and Shutdown. Shutdown is responsible for closing the
// connections it holds.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Mailer for verification codes and account notices
	Mailer *mailer.Mailer
}
