// Package commands holds the cobra commands of the platform-user binary.
package commands

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deppfellow/platform-user/internal/config"
	"github.com/deppfellow/platform-user/internal/logger"
	"github.com/deppfellow/platform-user/internal/script"
	"github.com/deppfellow/platform-user/internal/script/user"
)

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "platform-user",
		Short: "Platform user management scripts and their HTTP host",
		Long: `platform-user serves the user management handler scripts over HTTP.

Configuration is read from PLATFORM_ prefixed environment variables (or a .env
file); nested keys use a double underscore, e.g. PLATFORM_DATABASE__DRIVER=sqlite3.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewServeCommand(),
		NewMigrateCommand(),
		NewAPICommand(),
	)

	return rootCmd
}

// NewRegistry returns the registry of every script this binary serves.
func NewRegistry() (*script.Registry, error) {
	registry := script.NewRegistry()
	if err := user.Register(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

// loadCLIConfig loads the configuration and a logger writing to w.
func loadCLIConfig(w io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.NewLoggerWithWriter(cfg.Observability, w), nil
}
