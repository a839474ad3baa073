package synth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/shedtool/shed/internal/identity"
	"github.com/shedtool/shed/internal/settings"
)

// ConflictError reports that the destination already holds a
// configuration the caller did not consent to overwrite. Diff carries a
// unified diff between the existing and the freshly rendered alembic.ini
// when both exist.
type ConflictError struct {
	Dest string
	Diff string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("destination %s already contains a migration configuration (re-run with overwrite to replace it)", e.Dest)
	if e.Diff != "" {
		msg += "\n" + e.Diff
	}
	return msg
}

type extractedSection struct {
	Name            string
	DSN             string
	VersionLocation string
	MultiMember     bool
	MemberList      string
}

type extractedData struct {
	Project  string
	EnvVar   string
	Sections []extractedSection
}

// Extract writes a durable, user-owned configuration for every physical
// database of a project into destDir: one named ini section per identity
// group, the bridge env.py, the revision template, and usage guidance.
// All emitted paths are relative to destDir. Re-running with identical
// inputs and overwrite consent is byte-for-byte reproducible.
func Extract(p *settings.Project, projectName, destDir string, overwrite bool) ([]string, error) {
	plan, err := identity.BuildPlan(p, p.EnvNames())
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("project %q has no environments to extract", projectName)
	}

	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if err := os.MkdirAll(destAbs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}

	data := extractedData{Project: projectName, EnvVar: settings.EnvVar}
	for _, sec := range plan {
		dsn, err := RelativeDSN(sec.Connection, destAbs)
		if err != nil {
			return nil, err
		}
		versionLoc, err := filepath.Rel(destAbs, sec.VersionLocation)
		if err != nil {
			return nil, fmt.Errorf("cannot express %q relative to %q: %w", sec.VersionLocation, destAbs, err)
		}
		data.Sections = append(data.Sections, extractedSection{
			Name:            sec.Name,
			DSN:             dsn,
			VersionLocation: filepath.ToSlash(versionLoc),
			MultiMember:     len(sec.Members) > 1,
			MemberList:      strings.Join(sec.Members, ", "),
		})
	}

	ini, err := render("extracted.ini.tmpl", data)
	if err != nil {
		return nil, err
	}
	envPy, err := envScript(p, projectName, destAbs)
	if err != nil {
		return nil, err
	}
	readme, err := render("README.md.tmpl", data)
	if err != nil {
		return nil, err
	}

	unlock, err := lockDir(destAbs)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// conflict inspection happens under the lock so a concurrent
	// extraction cannot finish in between and be clobbered
	iniPath := filepath.Join(destAbs, "alembic.ini")
	if !overwrite {
		if err := checkConflict(destAbs, iniPath, ini); err != nil {
			return nil, err
		}
	}

	files := []struct {
		name string
		data []byte
	}{
		{"alembic.ini", ini},
		{"env.py", envPy},
		{"script.py.mako", revisionTemplate()},
		{"README.md", readme},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(destAbs, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// checkConflict fails when destDir already holds extracted files,
// attaching a diff of the ini so the caller can judge what overwriting
// would change.
func checkConflict(destDir, iniPath string, rendered []byte) error {
	existing, err := os.ReadFile(iniPath)
	if err != nil {
		if os.IsNotExist(err) {
			if _, err := os.Stat(filepath.Join(destDir, "env.py")); err == nil {
				return &ConflictError{Dest: destDir}
			}
			return nil
		}
		return fmt.Errorf("failed to inspect destination: %w", err)
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(existing)),
		B:        difflib.SplitLines(string(rendered)),
		FromFile: "existing alembic.ini",
		ToFile:   "rendered alembic.ini",
		Context:  3,
	})
	return &ConflictError{Dest: destDir, Diff: diff}
}

// lockDir takes an exclusive lockfile in dir so concurrent extractions
// cannot interleave partial writes. The returned release func is safe to
// defer and always removes the lockfile.
func lockDir(dir string) (func(), error) {
	lockPath := filepath.Join(dir, ".shed.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("extraction already in progress in %s (stale lockfile? remove %s)", dir, lockPath)
		}
		return nil, fmt.Errorf("failed to lock destination: %w", err)
	}
	f.Close()
	return func() { os.Remove(lockPath) }, nil
}
