// Package main is the entry point for the repository source resolver.
package main

import (
	"os"

	"github.com/sdkforge/repo-resolver/cmd/repo-resolver/app"
	"github.com/sdkforge/repo-resolver/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
