package settings

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// EnvVar overrides the settings file location for both the CLI and
	// the bridge resolution path used by the migration engine.
	EnvVar = "SHED_SETTINGS"

	// DefaultFileName is used when neither a flag nor EnvVar is set.
	DefaultFileName = "shed.yaml"
)

// DiscoverPath resolves the settings file location with precedence:
// explicit override, SHED_SETTINGS, ./shed.yaml. A .env.local found in
// the working directory or any parent (up to the home directory) is
// loaded first so it can supply SHED_SETTINGS.
func DiscoverPath(override string) string {
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}
	if override != "" {
		return override
	}
	if v := os.Getenv(EnvVar); v != "" {
		return v
	}
	return DefaultFileName
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories, stopping at the home directory or filesystem root.
func findEnvLocal() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	} else {
		homeDir = filepath.Clean(homeDir)
	}

	dir := filepath.Clean(cwd)
	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		if dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
