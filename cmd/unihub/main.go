// cmd/unihub/main.go
package main

import (
	"context"
	"os"

	"github.com/dalemusser/waffle/app"

	"github.com/unihub-ua/unihub/internal/app/bootstrap"
)

func main() {
	// Run logs its own errors; the exit code is all that is left to set.
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		os.Exit(1)
	}
}
