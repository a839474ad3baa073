package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shedtool/shed/internal/bridge"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a connection for the migration engine",
	Long: `Resolve is the runtime bridge consumed by the rendered env.py: it loads
the settings file (honoring the usual discovery rules), resolves the
project/environment selectors, and prints the connection to use. When
several environments share one physical database, --tenant selects the
schema to target. It never writes the settings file.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

var (
	resolveProject string
	resolveEnv     string
	resolveTenant  string
	resolveJSON    bool
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveProject, "project", "p", "", "Project name (required)")
	resolveCmd.Flags().StringVarP(&resolveEnv, "env", "e", "", "Environment name (default: development auto-detection)")
	resolveCmd.Flags().StringVarP(&resolveTenant, "tenant", "t", "", "Schema selector for grouped environments")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Output JSON")
	_ = resolveCmd.MarkFlagRequired("project")
}

func runResolve(cmd *cobra.Command, args []string) error {
	res, err := bridge.Resolve(bridge.Options{
		SettingsPath: settingsOverride(cmd),
		Project:      resolveProject,
		Environment:  resolveEnv,
		Tenant:       resolveTenant,
	})
	if err != nil {
		return err
	}

	if resolveJSON {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(res)
	}
	fmt.Println(res.DSN)
	if res.Schema != "" {
		fmt.Printf("schema: %s\n", res.Schema)
	}
	return nil
}
