package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/engine"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <project[.env]>",
	Short: "Apply pending migrations to an environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrate,
}

var (
	migrateDryRun   bool
	migrateRevision string
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Emit SQL without executing")
	migrateCmd.Flags().StringVar(&migrateRevision, "revision", "head", "Target revision")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	res, err := parseTarget(s, args[0])
	if err != nil {
		return err
	}

	engineArgs := []string{"upgrade", migrateRevision}
	if migrateDryRun {
		// emits sql to stdout instead of applying
		engineArgs = append(engineArgs, "--sql")
	}
	result, err := engine.Run(cmd.Context(), engineArgs, res)
	if err != nil {
		return err
	}
	if !result.Ok() {
		return fmt.Errorf("migration of %s.%s failed: %s",
			res.ProjectName, res.EnvName, strings.TrimSpace(result.Stderr))
	}

	if migrateDryRun {
		fmt.Print(result.Stdout)
		return nil
	}
	success("migrated %s.%s (%s)", res.ProjectName, res.EnvName, res.Env.Connection.Type())
	return nil
}
