package commands

import (
	"github.com/spf13/cobra"

	"github.com/deppfellow/platform-user/internal/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema migrations to the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadCLIConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			db, err := database.New(cfg, &log, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			return db.Migrate(cmd.Context())
		},
	}
}
