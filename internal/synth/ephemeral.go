package synth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shedtool/shed/internal/settings"
)

// Ephemeral is a transient, single-section migration-engine config. The
// caller owns cleanup; Cleanup is safe on every exit path including
// engine failure.
type Ephemeral struct {
	Dir     string
	IniPath string
}

// Cleanup removes the transient directory.
func (e *Ephemeral) Cleanup() {
	if e.Dir != "" {
		os.RemoveAll(e.Dir)
	}
}

type ephemeralIniData struct {
	ScriptLocation  string
	VersionLocation string
	DSN             string
}

// NewEphemeral writes a one-environment configuration (alembic.ini,
// env.py, revision template) into a fresh directory under the system
// temp dir. workDir is the directory the migration engine will run in;
// every path inside the emitted text is expressed relative to it, since
// the engine resolves paths against its own working directory rather
// than the settings file's.
func NewEphemeral(p *settings.Project, projectName, envName, workDir string) (*Ephemeral, error) {
	env, ok := p.Envs[envName]
	if !ok {
		return nil, fmt.Errorf("no environment named %q", envName)
	}

	dir := filepath.Join(os.TempDir(), "shed-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create ephemeral config dir: %w", err)
	}
	eph := &Ephemeral{Dir: dir, IniPath: filepath.Join(dir, "alembic.ini")}

	if err := eph.write(p, projectName, env, workDir); err != nil {
		eph.Cleanup()
		return nil, err
	}
	return eph, nil
}

func (e *Ephemeral) write(p *settings.Project, projectName string, env *settings.Environment, workDir string) error {
	scriptLoc, err := filepath.Rel(workDir, e.Dir)
	if err != nil {
		return fmt.Errorf("cannot express %q relative to %q: %w", e.Dir, workDir, err)
	}
	versionLoc, err := filepath.Rel(workDir, p.VersionsDir())
	if err != nil {
		return fmt.Errorf("cannot express %q relative to %q: %w", p.VersionsDir(), workDir, err)
	}
	dsn, err := RelativeDSN(env.Connection, workDir)
	if err != nil {
		return err
	}

	ini, err := render("ephemeral.ini.tmpl", ephemeralIniData{
		ScriptLocation:  filepath.ToSlash(scriptLoc),
		VersionLocation: filepath.ToSlash(versionLoc),
		DSN:             dsn,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.IniPath, ini, 0644); err != nil {
		return fmt.Errorf("failed to write alembic.ini: %w", err)
	}

	envPy, err := envScript(p, projectName, e.Dir)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(e.Dir, "env.py"), envPy, 0644); err != nil {
		return fmt.Errorf("failed to write env.py: %w", err)
	}

	if err := os.WriteFile(filepath.Join(e.Dir, "script.py.mako"), revisionTemplate(), 0644); err != nil {
		return fmt.Errorf("failed to write script.py.mako: %w", err)
	}
	return nil
}
