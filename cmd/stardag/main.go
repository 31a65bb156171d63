package main

import (
	"os"

	"github.com/dyluth/stardag/cmd/stardag/commands"
	"github.com/dyluth/stardag/pkg/testdag"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// The stock binary knows the example task library. Programs with their own
	// task types build their own main with their own registry.
	commands.SetRegistry(testdag.Registry())

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
