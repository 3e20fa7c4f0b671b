// Package main is the platform-user binary: the HTTP host for the handler
// scripts plus migration and local invocation tooling.
package main

import (
	"fmt"
	"os"

	"github.com/deppfellow/platform-user/cmd/platform-user/commands"
)

// Set by build flags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	rootCmd := commands.NewRootCommand(fmt.Sprintf("%s (commit: %s)", version, commit))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
