// Package main provides the entry point for the annotload CLI tool.
package main

import (
	"context"
	"os"

	"github.com/annotbase/annotload/cmd/annotload/app"
)

// Version information populated by the release build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	application, err := app.New(version, commit, date)
	if err != nil {
		app.ExitOnError(err)
	}

	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	if err := application.Execute(ctx, os.Args[1:]); err != nil {
		if shutdownErr := application.Shutdown(); shutdownErr != nil {
			application.Logger().Error().Err(shutdownErr).Msg("Shutdown error during error handling")
		}
		app.ExitOnError(err)
	}
	app.ExitOnError(application.Shutdown())
}
