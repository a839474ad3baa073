package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shedtool/shed/internal/settings"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [project[.env]]",
	Short: "Check settings health and database connectivity",
	Long: `Doctor validates the settings tree (module paths, migration folders) and
pings each configured database. With a target argument only that
project/environment is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

var (
	doctorJSON   bool
	doctorNoPing bool
)

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message,omitempty"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output JSON")
	doctorCmd.Flags().BoolVar(&doctorNoPing, "no-ping", false, "Skip database connectivity checks")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	projectFilter, envFilter := "", ""
	if len(args) == 1 {
		res, err := parseTarget(s, args[0])
		if err != nil {
			return err
		}
		projectFilter, envFilter = res.ProjectName, res.EnvName
	}

	checks := runChecks(s, projectFilter, envFilter, !doctorNoPing)

	if doctorJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(checks)
	}

	errors := 0
	for _, c := range checks {
		marker := "✓"
		switch c.Status {
		case "warning":
			marker = "⚠"
		case "error":
			marker = "✗"
			errors++
		}
		fmt.Printf("%s %s", marker, c.Name)
		if c.Message != "" {
			fmt.Printf(": %s", c.Message)
		}
		fmt.Println()
	}
	if errors > 0 {
		return fmt.Errorf("%d check(s) failed", errors)
	}
	return nil
}

func runChecks(s *settings.Settings, projectFilter, envFilter string, ping bool) []checkResult {
	var checks []checkResult
	add := func(name, status, message string) {
		checks = append(checks, checkResult{Name: name, Status: status, Message: message})
	}

	add("settings", "ok", s.Path())

	for _, projectName := range projectNames(s) {
		if projectFilter != "" && projectName != projectFilter {
			continue
		}
		p := s.Projects[projectName]

		if _, err := os.Stat(p.Module); err != nil {
			add(projectName+"/module", "error", fmt.Sprintf("module not found at %s", p.Module))
		} else {
			add(projectName+"/module", "ok", "")
		}
		if _, err := os.Stat(p.VersionsDir()); err != nil {
			add(projectName+"/migrations", "warning",
				fmt.Sprintf("no versions directory at %s (run 'shed init %s')", p.VersionsDir(), projectName))
		} else {
			add(projectName+"/migrations", "ok", "")
		}

		for _, envName := range p.EnvNames() {
			if envFilter != "" && envName != envFilter {
				continue
			}
			name := projectName + "." + envName
			if !ping {
				add(name, "ok", "ping skipped")
				continue
			}
			if err := pingConnection(p.Envs[envName].Connection); err != nil {
				add(name, "error", err.Error())
			} else {
				add(name, "ok", "")
			}
		}
	}
	return checks
}

func pingConnection(conn settings.Connection) error {
	var driver, dataSource string
	switch c := conn.(type) {
	case *settings.SqliteConnection:
		if _, err := os.Stat(c.Path); err != nil {
			return fmt.Errorf("database file not found at %s", c.Path)
		}
		driver, dataSource = "sqlite3", c.Path
	case *settings.PostgresConnection:
		driver, dataSource = "postgres", c.DSN()
	default:
		return fmt.Errorf("unknown connection type %q", conn.Type())
	}

	db, err := sql.Open(driver, dataSource)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func projectNames(s *settings.Settings) []string {
	names := make([]string, 0, len(s.Projects))
	for name := range s.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
