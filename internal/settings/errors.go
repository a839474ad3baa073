package settings

import (
	"fmt"
	"strings"
)

// NotFoundError reports a missing settings file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("settings file not found: %s", e.Path)
}

// ValidationError reports a settings file that parsed but violates the
// schema: bad names, missing fields, malformed identifiers, or an
// unknown connection type.
type ValidationError struct {
	Path   string
	Field  string // dotted project[.environment] locator, may be empty
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid settings (%s): %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid settings (%s) at %s: %s", e.Path, e.Field, e.Reason)
}

// AmbiguousEnvironmentError reports that development-environment
// auto-detection found zero or several candidates.
type AmbiguousEnvironmentError struct {
	Project    string
	Candidates []string
}

func (e *AmbiguousEnvironmentError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf(
			"could not determine development environment for project %q: no environment named %q, dev* or *dev",
			e.Project, e.Project)
	}
	return fmt.Sprintf(
		"could not determine development environment for project %q: multiple candidates (%s); select one explicitly",
		e.Project, strings.Join(e.Candidates, ", "))
}
