package synth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shedtool/shed/internal/settings"
)

func testProject(t *testing.T) (*settings.Project, string) {
	t.Helper()
	root := t.TempDir()
	projDir := filepath.Join(root, "news")
	if err := os.MkdirAll(filepath.Join(projDir, "migrations", "versions"), 0755); err != nil {
		t.Fatal(err)
	}
	p := &settings.Project{
		Module: filepath.Join(projDir, "models.py"),
		Envs: map[string]*settings.Environment{
			"alpha": {Connection: &settings.PostgresConnection{
				Host: "127.0.0.1", Port: 5432,
				Username: "postgres", Password: "postgres",
				Database: "newsdb", Schema: "alpha",
			}},
			"beta": {Connection: &settings.PostgresConnection{
				Host: "127.0.0.1", Port: 5432,
				Username: "postgres", Password: "postgres",
				Database: "newsdb", Schema: "beta",
			}},
			"local": {Connection: &settings.SqliteConnection{
				Path: filepath.Join(root, "news.sqlite"),
			}},
		},
	}
	return p, projDir
}

// assertRelativePaths scans every path-valued field of an emitted ini
// for absolute paths, which the migration engine would resolve against
// the wrong base.
func assertRelativePaths(t *testing.T, content string) {
	t.Helper()
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "script_location", "version_locations", "prepend_sys_path":
			if filepath.IsAbs(value) {
				t.Errorf("absolute path in %s: %s", key, value)
			}
		case "sqlalchemy.url":
			if path, ok := strings.CutPrefix(value, "sqlite:///"); ok && strings.HasPrefix(path, "/") {
				t.Errorf("absolute path in sqlite url: %s", value)
			}
		}
	}
}

func TestNewEphemeral(t *testing.T) {
	p, projDir := testProject(t)

	eph, err := NewEphemeral(p, "news", "local", projDir)
	if err != nil {
		t.Fatal(err)
	}
	defer eph.Cleanup()

	ini, err := os.ReadFile(eph.IniPath)
	if err != nil {
		t.Fatal(err)
	}
	assertRelativePaths(t, string(ini))
	if !strings.Contains(string(ini), "sqlalchemy.url = sqlite:///../news.sqlite") {
		t.Errorf("sqlite url not re-rooted against the working directory:\n%s", ini)
	}

	envPy, err := os.ReadFile(filepath.Join(eph.Dir, "env.py"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(envPy), "from models import *") {
		t.Errorf("env.py does not import the models module:\n%s", envPy)
	}
	if !strings.Contains(string(envPy), `"--project", "news"`) {
		t.Errorf("env.py does not carry the project selector:\n%s", envPy)
	}

	if _, err := os.Stat(filepath.Join(eph.Dir, "script.py.mako")); err != nil {
		t.Errorf("revision template missing: %v", err)
	}

	eph.Cleanup()
	if _, err := os.Stat(eph.Dir); !os.IsNotExist(err) {
		t.Errorf("cleanup left the transient directory behind")
	}
}

func TestNewEphemeral_UnknownEnvironment(t *testing.T) {
	p, projDir := testProject(t)
	if _, err := NewEphemeral(p, "news", "ghost", projDir); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestExtract(t *testing.T) {
	p, _ := testProject(t)
	dest := t.TempDir()

	written, err := Extract(p, "news", dest, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 4 {
		t.Fatalf("wrote %d files, want 4: %v", len(written), written)
	}
	for _, path := range written {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("written file missing: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, ".shed.lock")); !os.IsNotExist(err) {
		t.Error("lockfile not released after extraction")
	}

	ini, err := os.ReadFile(filepath.Join(dest, "alembic.ini"))
	if err != nil {
		t.Fatal(err)
	}
	assertRelativePaths(t, string(ini))

	// alpha and beta share a physical database: one section, named after
	// the first member; the sqlite environment gets its own
	if !strings.Contains(string(ini), "[alpha]") {
		t.Errorf("missing merged section [alpha]:\n%s", ini)
	}
	if strings.Contains(string(ini), "[beta]") {
		t.Errorf("schema-only difference produced a redundant section:\n%s", ini)
	}
	if !strings.Contains(string(ini), "[local]") {
		t.Errorf("missing section [local]:\n%s", ini)
	}

	readme, err := os.ReadFile(filepath.Join(dest, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(readme), "tenant") {
		t.Errorf("guidance does not mention the tenant selector:\n%s", readme)
	}
}

func TestExtract_EnvScriptHonorsSectionSelection(t *testing.T) {
	p, _ := testProject(t)
	dest := t.TempDir()

	if _, err := Extract(p, "news", dest, false); err != nil {
		t.Fatal(err)
	}
	envPy, err := os.ReadFile(filepath.Join(dest, "env.py"))
	if err != nil {
		t.Fatal(err)
	}

	// running `alembic -n <section>` must resolve that section's
	// environment, not fall back to development auto-detection
	if !strings.Contains(string(envPy), `config.config_ini_section != "alembic"`) {
		t.Errorf("env.py does not consult the selected ini section:\n%s", envPy)
	}
	if !strings.Contains(string(envPy), "env = config.config_ini_section") {
		t.Errorf("env.py does not forward the selected section as the environment:\n%s", envPy)
	}
	if !strings.Contains(string(envPy), `cmd += ["--env", env]`) {
		t.Errorf("env.py does not pass the environment selector to the resolver:\n%s", envPy)
	}
}

func TestExtract_ConflictAndOverwrite(t *testing.T) {
	p, _ := testProject(t)
	dest := t.TempDir()

	if _, err := Extract(p, "news", dest, false); err != nil {
		t.Fatal(err)
	}
	firstIni, err := os.ReadFile(filepath.Join(dest, "alembic.ini"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Extract(p, "news", dest, false)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	if _, err := Extract(p, "news", dest, true); err != nil {
		t.Fatal(err)
	}
	secondIni, err := os.ReadFile(filepath.Join(dest, "alembic.ini"))
	if err != nil {
		t.Fatal(err)
	}
	if string(firstIni) != string(secondIni) {
		t.Errorf("re-extraction is not byte-identical:\nfirst:\n%s\nsecond:\n%s", firstIni, secondIni)
	}
}

func TestExtract_ConflictDiff(t *testing.T) {
	p, _ := testProject(t)
	dest := t.TempDir()

	if err := os.WriteFile(filepath.Join(dest, "alembic.ini"), []byte("[alembic]\nstale = yes\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Extract(p, "news", dest, false)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(conflict.Diff, "stale = yes") {
		t.Errorf("conflict diff does not show the existing config:\n%s", conflict.Diff)
	}
	if _, err := os.Stat(filepath.Join(dest, ".shed.lock")); !os.IsNotExist(err) {
		t.Error("lockfile not released after a conflict")
	}
}

func TestExtract_EmptyProject(t *testing.T) {
	p := &settings.Project{
		Module: filepath.Join(t.TempDir(), "app", "models.py"),
		Envs:   map[string]*settings.Environment{},
	}
	if _, err := Extract(p, "app", t.TempDir(), false); err == nil {
		t.Error("expected error for a project with no environments")
	}
}

func TestExtract_Locked(t *testing.T) {
	p, _ := testProject(t)
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, ".shed.lock"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Extract(p, "news", dest, false); err == nil || !strings.Contains(err.Error(), "in progress") {
		t.Errorf("expected lock error, got %v", err)
	}
}
