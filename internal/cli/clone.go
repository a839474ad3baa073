package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/identity"
	"github.com/shedtool/shed/internal/settings"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <project[.env]> [project[.env]]",
	Short: "Clone a database from source to target (same type only)",
	Long: `Clone copies the source environment's database over the target's. With a
single argument the target is the project's development environment.
Only sqlite targets are supported; network databases need dump/restore
tooling.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runClone,
}

var cloneDryRun bool

func init() {
	rootCmd.AddCommand(cloneCmd)
	cloneCmd.Flags().BoolVar(&cloneDryRun, "dry-run", false, "Show what would be done without executing")
}

func runClone(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	src, err := parseTarget(s, args[0])
	if err != nil {
		return err
	}

	var dst *settings.ResolvedEnvironment
	if len(args) == 2 {
		dst, err = parseTarget(s, args[1])
	} else {
		dst, err = s.ResolveEnvironment(src.ProjectName, "")
	}
	if err != nil {
		return err
	}

	if src.Env.Connection.Type() != dst.Env.Connection.Type() {
		return fmt.Errorf("connection types must match (source: %s, target: %s)",
			src.Env.Connection.Type(), dst.Env.Connection.Type())
	}
	if identity.SameDatabase(src.Env.Connection, dst.Env.Connection) {
		return fmt.Errorf("source and target are the same database")
	}

	srcConn, ok := src.Env.Connection.(*settings.SqliteConnection)
	if !ok {
		return fmt.Errorf("clone supports sqlite only; use dump/restore tooling for %s", src.Env.Connection.Type())
	}
	dstConn := dst.Env.Connection.(*settings.SqliteConnection)

	if cloneDryRun {
		fmt.Printf("[dry run] would clone %s to %s\n", srcConn.Path, dstConn.Path)
		return nil
	}

	data, err := os.ReadFile(srcConn.Path)
	if err != nil {
		return fmt.Errorf("failed to read source database: %w", err)
	}
	if err := os.WriteFile(dstConn.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write target database: %w", err)
	}
	success("cloned %s.%s to %s.%s", src.ProjectName, src.EnvName, dst.ProjectName, dst.EnvName)
	return nil
}
