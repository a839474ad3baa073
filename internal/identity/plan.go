package identity

import (
	"fmt"

	"github.com/shedtool/shed/internal/settings"
)

// Section is one migration-engine configuration section: a named block
// carrying one connection string and one script/version-scripts
// location. Members lists every environment sharing the section's
// physical database, in input order; the first member names the section
// and supplies the representative connection.
type Section struct {
	Name            string
	Connection      settings.Connection
	ScriptLocation  string
	VersionLocation string
	Members         []string
}

// BuildPlan partitions the named environments of a project by connection
// identity and assigns one section per group, preserving first-seen
// order of groups and of members within a group. Environments that
// differ only by schema collapse into one section; schema selection is
// deferred to the runtime bridge. An empty name list yields an empty
// plan.
func BuildPlan(p *settings.Project, envNames []string) ([]Section, error) {
	var plan []Section
	byKey := map[string]int{}

	for _, name := range envNames {
		env, ok := p.Envs[name]
		if !ok {
			return nil, fmt.Errorf("no environment named %q", name)
		}
		key := Key(env.Connection)
		if i, ok := byKey[key]; ok {
			plan[i].Members = append(plan[i].Members, name)
			continue
		}
		byKey[key] = len(plan)
		plan = append(plan, Section{
			Name:            name,
			Connection:      env.Connection,
			ScriptLocation:  p.MigrationsDir(),
			VersionLocation: p.VersionsDir(),
			Members:         []string{name},
		})
	}
	return plan, nil
}

// SectionFor returns the plan section containing envName, or nil.
func SectionFor(plan []Section, envName string) *Section {
	for i := range plan {
		for _, member := range plan[i].Members {
			if member == envName {
				return &plan[i]
			}
		}
	}
	return nil
}
