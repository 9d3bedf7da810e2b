// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires this app into the WAFFLE lifecycle. app.Run calls each
// function in order: configuration, DB connect, schema setup, one-time
// startup work, HTTP handler construction, and graceful shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "unihub",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}
