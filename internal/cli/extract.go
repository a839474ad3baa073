package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/synth"
)

var extractCmd = &cobra.Command{
	Use:   "extract <project> [dest]",
	Short: "Write a durable, user-owned alembic configuration",
	Long: `Extract renders one named configuration section per physical database of
the project, plus the environment script and revision template, into the
destination directory (default: the project directory). After extraction
the raw alembic tool can be used directly with -n <section>.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExtract,
}

var extractOverwrite bool

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractOverwrite, "overwrite", false, "Replace an existing extracted configuration")
}

func runExtract(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	projectName := args[0]
	project, ok := s.Projects[projectName]
	if !ok {
		return fmt.Errorf("project %q not found in %s", projectName, s.Path())
	}

	dest := filepath.Dir(project.Module)
	if len(args) == 2 {
		dest = args[1]
	}

	written, err := synth.Extract(project, projectName, dest, extractOverwrite)
	if err != nil {
		return err
	}
	for _, path := range written {
		success("wrote %s", path)
	}
	fmt.Printf("Drive alembic directly from %s, e.g.: alembic -n <section> upgrade head\n", dest)
	return nil
}
