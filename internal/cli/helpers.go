package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/settings"
)

// settingsOverride returns the raw --settings-path flag value; discovery
// (env var, default) happens in the settings package.
func settingsOverride(cmd *cobra.Command) string {
	override, _ := cmd.Flags().GetString("settings-path")
	return override
}

func settingsPath(cmd *cobra.Command) string {
	return settings.DiscoverPath(settingsOverride(cmd))
}

func loadSettings(cmd *cobra.Command) (*settings.Settings, error) {
	return settings.Load(settingsPath(cmd))
}

// parseTarget resolves a "project" or "project.environment" argument.
// The bare-project form triggers development auto-detection.
func parseTarget(s *settings.Settings, target string) (*settings.ResolvedEnvironment, error) {
	parts := strings.Split(target, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("target %q must be 'project' or 'project.environment'", target)
	}
	envName := ""
	if len(parts) == 2 {
		envName = parts[1]
	}
	return s.ResolveEnvironment(parts[0], envName)
}

func success(format string, args ...interface{}) {
	fmt.Printf("✓ "+format+"\n", args...)
}
