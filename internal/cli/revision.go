package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/engine"
)

var revisionCmd = &cobra.Command{
	Use:   "revision <project[.env]>",
	Short: "Create a new migration revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevision,
}

var (
	revisionMessage   string
	revisionNoAutogen bool
	revisionUseRuff   bool
)

func init() {
	rootCmd.AddCommand(revisionCmd)

	revisionCmd.Flags().StringVarP(&revisionMessage, "message", "m", "Auto-generated revision", "Revision message")
	revisionCmd.Flags().BoolVar(&revisionNoAutogen, "no-autogenerate", false, "Write an empty revision instead of diffing the models")
	revisionCmd.Flags().BoolVar(&revisionUseRuff, "use-ruff", false, "Format the generated revision script with ruff")
}

func runRevision(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	res, err := parseTarget(s, args[0])
	if err != nil {
		return err
	}

	if _, err := os.Stat(res.Project.MigrationsDir()); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory not found at %s (run 'shed init %s' first)",
			res.Project.MigrationsDir(), res.ProjectName)
	}

	engineArgs := []string{"revision", "-m", revisionMessage}
	if !revisionNoAutogen {
		engineArgs = append(engineArgs, "--autogenerate")
	}
	result, err := engine.Run(cmd.Context(), engineArgs, res)
	if err != nil {
		return err
	}
	if !result.Ok() {
		return fmt.Errorf("revision failed: %s", strings.TrimSpace(result.Stderr))
	}

	success("created revision: %s", revisionMessage)
	if latest := latestRevisionFile(res.Project.VersionsDir()); latest != "" {
		fmt.Printf("Revision file: %s\n", latest)
		if revisionUseRuff {
			if err := formatRevision(cmd.Context(), "ruff", latest); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}
	return nil
}

// formatRevision runs the named formatter over a generated revision
// script. A formatter that is not installed is not an error; a
// formatter that runs and fails is.
func formatRevision(ctx context.Context, formatter, path string) error {
	exe, err := exec.LookPath(formatter)
	if err != nil {
		return nil
	}
	out, err := exec.CommandContext(ctx, exe, "format", path).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s format failed: %s", formatter, strings.TrimSpace(string(out)))
	}
	return nil
}

// latestRevisionFile returns the most recently modified revision script,
// or "" when none can be determined.
func latestRevisionFile(versionsDir string) string {
	matches, err := filepath.Glob(filepath.Join(versionsDir, "*.py"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	latest := ""
	var latestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest, latestMod = m, mod
		}
	}
	return latest
}
