package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/engine"
)

var alembicCmd = &cobra.Command{
	Use:   "alembic <project[.env]> [engine args...]",
	Short: "Run raw alembic commands for a project environment",
	Long: `Alembic passes its remaining arguments straight to the migration engine,
wired to the selected environment through an ephemeral configuration.
Example: shed alembic news.prod history --verbose`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAlembic,
}

func init() {
	rootCmd.AddCommand(alembicCmd)
	// everything after the target belongs to the engine
	alembicCmd.Flags().SetInterspersed(false)
}

func runAlembic(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	res, err := parseTarget(s, args[0])
	if err != nil {
		return err
	}

	result, err := engine.Run(cmd.Context(), args[1:], res)
	if err != nil {
		return err
	}
	fmt.Print(result.Stdout)
	if !result.Ok() {
		fmt.Fprint(os.Stderr, result.Stderr)
		return fmt.Errorf("alembic exited with status %d", result.ExitCode)
	}
	return nil
}
