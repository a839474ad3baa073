// Package synth renders migration-engine configuration from the
// settings tree and a section plan: ephemeral single-invocation configs
// and durable extracted ones. Every path written into emitted text is
// relative, re-rooted against the directory the engine will run from.
package synth

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/shedtool/shed/internal/settings"
)

//go:embed templates
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

func render(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// revisionTemplate is the static mako template alembic uses to write new
// revision scripts. Copied verbatim into both config flavors.
func revisionTemplate() []byte {
	data, err := templatesFS.ReadFile("templates/script.py.mako")
	if err != nil {
		panic(err)
	}
	return data
}

// RelativeDSN returns the connection URL with any embedded filesystem
// path rewritten relative to base. Network connections carry no paths
// and pass through unchanged.
func RelativeDSN(conn settings.Connection, base string) (string, error) {
	c, ok := conn.(*settings.SqliteConnection)
	if !ok {
		return conn.DSN(), nil
	}
	rel, err := filepath.Rel(base, c.Path)
	if err != nil {
		return "", fmt.Errorf("cannot express %q relative to %q: %w", c.Path, base, err)
	}
	return "sqlite:///" + filepath.ToSlash(rel), nil
}

type envScriptData struct {
	Project      string
	ModelsDir    string
	ModelsImport string
}

// envScript renders the bridge env.py for a script directory. The module
// path is referenced relative to the script's own location, so the
// result is position-independent text.
func envScript(p *settings.Project, projectName, scriptDir string) ([]byte, error) {
	moduleDir := filepath.Dir(p.Module)
	rel, err := filepath.Rel(scriptDir, moduleDir)
	if err != nil {
		return nil, fmt.Errorf("cannot express %q relative to %q: %w", moduleDir, scriptDir, err)
	}
	base := filepath.Base(p.Module)
	return render("env.py.tmpl", envScriptData{
		Project:      projectName,
		ModelsDir:    filepath.ToSlash(rel),
		ModelsImport: strings.TrimSuffix(base, filepath.Ext(base)),
	})
}
