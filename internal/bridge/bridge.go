// Package bridge implements the runtime contract behind the rendered
// env.py: given a settings-file location and a small set of selectors,
// resolve the connection the migration engine should use. It is executed
// in a separate process from the engine's point of view (via the shed
// resolve command) and is strictly read-only with respect to settings.
package bridge

import (
	"fmt"
	"strings"

	"github.com/shedtool/shed/internal/identity"
	"github.com/shedtool/shed/internal/settings"
)

// MissingTenantError reports that the resolved environment belongs to a
// multi-member identity group (several schemas on one physical database)
// and no tenant selector was supplied to disambiguate.
type MissingTenantError struct {
	Project     string
	Environment string
	Members     []string
}

func (e *MissingTenantError) Error() string {
	return fmt.Sprintf(
		"environments %s of project %q share one database; pass a tenant selector to pick the schema for %q",
		strings.Join(e.Members, ", "), e.Project, e.Environment)
}

// Options are the selectors the migration engine passes through its
// extension-argument mechanism, plus an optional settings-path override.
type Options struct {
	SettingsPath string // empty means discover via env var / default
	Project      string
	Environment  string // empty means development auto-detection
	Tenant       string
}

// Resolution is what the engine needs to migrate: a synchronous
// connection URL, the effective schema, and the project metadata backing
// autogeneration.
type Resolution struct {
	Project     string `json:"project"`
	Environment string `json:"environment"`
	Section     string `json:"section"`
	DSN         string `json:"dsn"`
	Schema      string `json:"schema,omitempty"`
	Module      string `json:"module"`
	VersionsDir string `json:"versions_dir"`
}

// Resolve loads the settings aggregate and resolves the selectors to a
// connection. When the environment's identity group has more than one
// member the tenant selector is mandatory; when supplied it overrides
// the connection's configured schema.
func Resolve(opts Options) (*Resolution, error) {
	path := settings.DiscoverPath(opts.SettingsPath)
	s, err := settings.Load(path)
	if err != nil {
		return nil, err
	}

	res, err := s.ResolveEnvironment(opts.Project, opts.Environment)
	if err != nil {
		return nil, err
	}

	plan, err := identity.BuildPlan(res.Project, res.Project.EnvNames())
	if err != nil {
		return nil, err
	}
	section := identity.SectionFor(plan, res.EnvName)
	if section == nil {
		return nil, fmt.Errorf("environment %q missing from section plan", res.EnvName)
	}

	schema := res.Env.Connection.SchemaName()
	if opts.Tenant != "" {
		if !settings.SchemaPattern.MatchString(opts.Tenant) {
			return nil, fmt.Errorf("tenant %q is not a simple identifier", opts.Tenant)
		}
		schema = opts.Tenant
	} else if len(section.Members) > 1 {
		return nil, &MissingTenantError{
			Project:     res.ProjectName,
			Environment: res.EnvName,
			Members:     section.Members,
		}
	}

	return &Resolution{
		Project:     res.ProjectName,
		Environment: res.EnvName,
		Section:     section.Name,
		DSN:         res.Env.Connection.DSN(),
		Schema:      schema,
		Module:      res.Project.Module,
		VersionsDir: res.Project.VersionsDir(),
	}, nil
}
