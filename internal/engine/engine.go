// Package engine invokes the external migration engine (alembic)
// against a freshly synthesized ephemeral configuration. This is the
// only subprocess boundary in the tool.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/shedtool/shed/internal/settings"
	"github.com/shedtool/shed/internal/synth"
)

// Binary is the engine executable looked up on PATH.
const Binary = "alembic"

// Environment variables consumed by the rendered env.py on the
// ephemeral path, so the engine connects without re-reading settings.
const (
	EnvDSN    = "SHED_CURRENT_DSN"
	EnvSchema = "SHED_CURRENT_SCHEMA"
)

// Result captures an engine invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Ok reports whether the engine exited cleanly.
func (r *Result) Ok() bool { return r.ExitCode == 0 }

// Run synthesizes an ephemeral config for the resolved environment and
// executes the engine with args from the project directory. The
// transient config is removed on every exit path, including engine
// failure. A non-zero engine exit is reported through Result, not error;
// error means the invocation itself could not happen.
func Run(ctx context.Context, args []string, res *settings.ResolvedEnvironment) (*Result, error) {
	projDir := filepath.Dir(res.Project.Module)

	eph, err := synth.NewEphemeral(res.Project, res.ProjectName, res.EnvName, projDir)
	if err != nil {
		return nil, err
	}
	defer eph.Cleanup()

	cmd := exec.CommandContext(ctx, Binary, append([]string{"-c", eph.IniPath}, args...)...)
	cmd.Dir = projDir
	cmd.Env = append(os.Environ(),
		EnvDSN+"="+res.Env.Connection.DSN(),
		EnvSchema+"="+res.Env.Connection.SchemaName(),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", Binary, err)
	}
	return result, nil
}
