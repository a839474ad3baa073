package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shedtool/shed/internal/settings"
)

func testSettings(t *testing.T) *settings.Settings {
	t.Helper()
	dir := t.TempDir()
	s, err := settings.New(filepath.Join(dir, "shed.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.AddProject("news", filepath.Join(dir, "news", "models.py"))
	if err != nil {
		t.Fatal(err)
	}
	p.Envs["prod"] = &settings.Environment{
		Connection: &settings.PostgresConnection{
			Host: "127.0.0.1", Port: 5432,
			Username: "postgres", Password: "postgres",
			Database: "newsdb",
		},
	}
	p.Envs["devbox"] = &settings.Environment{
		Connection: &settings.SqliteConnection{Path: filepath.Join(dir, "news.sqlite")},
	}
	return s
}

func TestParseTarget(t *testing.T) {
	s := testSettings(t)

	res, err := parseTarget(s, "news.prod")
	if err != nil {
		t.Fatal(err)
	}
	if res.ProjectName != "news" || res.EnvName != "prod" {
		t.Errorf("resolved %s.%s", res.ProjectName, res.EnvName)
	}

	res, err = parseTarget(s, "news")
	if err != nil {
		t.Fatal(err)
	}
	if res.EnvName != "devbox" {
		t.Errorf("bare project resolved to %q, want the dev environment", res.EnvName)
	}

	if _, err := parseTarget(s, "news.prod.extra"); err == nil {
		t.Error("expected error for too many target segments")
	}
	if _, err := parseTarget(s, "ghost"); err == nil {
		t.Error("expected error for unknown project")
	}
}

func TestDevEnvironment(t *testing.T) {
	root := t.TempDir()

	env, err := devEnvironment("sqlite", root, "news")
	if err != nil {
		t.Fatal(err)
	}
	conn := env.Connection.(*settings.SqliteConnection)
	if want := filepath.Join(root, "news.sqlite"); conn.Path != want {
		t.Errorf("path = %q, want %q", conn.Path, want)
	}
	if env.Role != settings.RoleDevelopment {
		t.Errorf("role = %q", env.Role)
	}

	env, err = devEnvironment("postgres", root, "news")
	if err != nil {
		t.Fatal(err)
	}
	if got := env.Connection.(*settings.PostgresConnection).Database; got != "news" {
		t.Errorf("database = %q, want news", got)
	}

	if _, err := devEnvironment("mysql", root, "news"); err == nil {
		t.Error("expected error for unsupported dev database type")
	}
}

func TestFormatRevision(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "abc123_initial.py")
	if err := os.WriteFile(script, []byte("pass\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// an uninstalled formatter is skipped silently
	t.Setenv("PATH", dir)
	if err := formatRevision(context.Background(), "ruff", script); err != nil {
		t.Errorf("missing formatter should not be an error, got %v", err)
	}

	// an installed formatter that fails is reported
	fake := filepath.Join(dir, "ruff")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\necho broken >&2\nexit 1\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := formatRevision(context.Background(), "ruff", script); err == nil {
		t.Error("expected error from a failing formatter")
	}
}

func TestRunChecks(t *testing.T) {
	s := testSettings(t)

	checks := runChecks(s, "", "", false)
	byName := map[string]checkResult{}
	for _, c := range checks {
		byName[c.Name] = c
	}

	if c, ok := byName["news/module"]; !ok || c.Status != "error" {
		t.Errorf("module check = %+v, want error for missing module", c)
	}
	if c, ok := byName["news/migrations"]; !ok || c.Status != "warning" {
		t.Errorf("migrations check = %+v, want warning", c)
	}
	if c, ok := byName["news.prod"]; !ok || c.Status != "ok" {
		t.Errorf("prod check = %+v, want ok with ping skipped", c)
	}
}
