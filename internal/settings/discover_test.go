package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverPath_Precedence(t *testing.T) {
	t.Setenv(EnvVar, "")

	if got := DiscoverPath(""); got != DefaultFileName {
		t.Errorf("default path = %q, want %q", got, DefaultFileName)
	}

	t.Setenv(EnvVar, "/etc/shed/settings.yaml")
	if got := DiscoverPath(""); got != "/etc/shed/settings.yaml" {
		t.Errorf("env var path = %q", got)
	}

	if got := DiscoverPath("override.yaml"); got != "override.yaml" {
		t.Errorf("override path = %q, want override.yaml", got)
	}
}

func TestDiscoverPath_EnvLocal(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "from-dotenv.yaml")
	envLocal := filepath.Join(dir, ".env.local")
	if err := os.WriteFile(envLocal, []byte(EnvVar+"="+target+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvVar, "")
	os.Unsetenv(EnvVar)
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWD) })

	if got := DiscoverPath(""); got != target {
		t.Errorf("path = %q, want %q from .env.local", got, target)
	}
}
