package cli

import (
	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/settings"
)

var rootCmd = &cobra.Command{
	Use:   "shed",
	Short: "Manage database schemas and migrations across projects",
	Long: `shed keeps per-project database connection settings in one file and
synthesizes the alembic configuration needed to migrate them, so that
projects never hand-author alembic.ini or env.py.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("settings-path", "s", "",
		"Path to settings file (overrides "+settings.EnvVar+")")
}
