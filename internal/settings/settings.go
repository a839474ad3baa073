package settings

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Environment binds a connection to a named slot under a project. The
// name itself is the map key in Project.Envs. Role is advisory and only
// consulted by development-environment auto-detection.
type Environment struct {
	Connection Connection
	Role       string
}

// Project holds the model-definitions module and the database
// environments that migrate it. Module is absolute in memory.
type Project struct {
	Module string                  `yaml:"module"`
	Envs   map[string]*Environment `yaml:"db"`
}

// MigrationsDir is derived: a sibling of the module directory.
func (p *Project) MigrationsDir() string {
	return filepath.Join(filepath.Dir(p.Module), "migrations")
}

// VersionsDir holds the generated revision scripts.
func (p *Project) VersionsDir() string {
	return filepath.Join(p.MigrationsDir(), "versions")
}

// EnvNames returns the project's environment names, sorted.
func (p *Project) EnvNames() []string {
	names := make([]string, 0, len(p.Envs))
	for name := range p.Envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Settings is the root of the configuration tree. The backing file path
// is held privately and never serialized; it is fixed at Load/New time.
type Settings struct {
	Projects map[string]*Project `yaml:"projects"`

	path string
}

// New returns an empty settings tree backed by path. Nothing touches the
// filesystem until Save.
func New(path string) (*Settings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}
	return &Settings{Projects: map[string]*Project{}, path: abs}, nil
}

// Load reads and validates the settings file at path. All relative paths
// in the file are resolved against the file's directory.
func Load(path string) (*Settings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: abs}
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, &ValidationError{Path: abs, Reason: err.Error()}
	}
	if s.Projects == nil {
		s.Projects = map[string]*Project{}
	}
	s.path = abs

	if err := s.validate(); err != nil {
		return nil, err
	}
	s.rerootAbsolute(filepath.Dir(abs))
	return &s, nil
}

// Path returns the absolute path of the backing settings file.
func (s *Settings) Path() string { return s.path }

// Dir returns the directory of the backing settings file, the base for
// all relative paths stored on disk.
func (s *Settings) Dir() string { return filepath.Dir(s.path) }

// Save serializes the tree back to the backing file, rewriting every
// absolute path to be relative to the file's directory. The in-memory
// tree is left untouched.
func (s *Settings) Save() error {
	if s.path == "" {
		return fmt.Errorf("settings have no backing file path")
	}
	if err := s.validate(); err != nil {
		return err
	}

	out := s.clone()
	if err := out.rerootRelative(s.Dir()); err != nil {
		return err
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// AddProject registers a project if absent and returns it. modulePath
// must already be absolute; relative input here would silently bind to
// the process working directory instead of the settings directory.
func (s *Settings) AddProject(name, modulePath string) (*Project, error) {
	if containsWhitespace(name) || name == "" {
		return nil, &ValidationError{Path: s.path, Field: "project", Reason: fmt.Sprintf("invalid project name %q", name)}
	}
	if !filepath.IsAbs(modulePath) {
		return nil, fmt.Errorf("module path %q must be absolute", modulePath)
	}
	if p, ok := s.Projects[name]; ok {
		return p, nil
	}
	p := &Project{Module: modulePath, Envs: map[string]*Environment{}}
	s.Projects[name] = p
	return p, nil
}

// ResolvedEnvironment is the outcome of target resolution: a project and
// one of its environments, both by name and by reference.
type ResolvedEnvironment struct {
	ProjectName string
	Project     *Project
	EnvName     string
	Env         *Environment
}

// ResolveEnvironment resolves a project plus environment pair. With an
// empty envName the development environment is auto-detected: an
// environment named exactly after the project wins; otherwise there must
// be exactly one environment with a dev-style name (dev* or *dev) or the
// "development" role.
func (s *Settings) ResolveEnvironment(projectName, envName string) (*ResolvedEnvironment, error) {
	p, ok := s.Projects[projectName]
	if !ok {
		return nil, fmt.Errorf("project %q not found in %s", projectName, s.path)
	}

	if envName == "" {
		candidates := devCandidates(p, projectName)
		if len(candidates) != 1 {
			return nil, &AmbiguousEnvironmentError{Project: projectName, Candidates: candidates}
		}
		envName = candidates[0]
	}

	env, ok := p.Envs[envName]
	if !ok {
		return nil, fmt.Errorf("project %q has no environment named %q", projectName, envName)
	}
	return &ResolvedEnvironment{
		ProjectName: projectName,
		Project:     p,
		EnvName:     envName,
		Env:         env,
	}, nil
}

func devCandidates(p *Project, projectName string) []string {
	if _, ok := p.Envs[projectName]; ok {
		return []string{projectName}
	}
	var candidates []string
	for _, name := range p.EnvNames() {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "dev") || strings.HasSuffix(lower, "dev") || p.Envs[name].Role == RoleDevelopment {
			candidates = append(candidates, name)
		}
	}
	return candidates
}

// RoleDevelopment marks an environment as a development target for
// auto-detection; any other role value is ignored.
const RoleDevelopment = "development"

func (s *Settings) validate() error {
	for name, p := range s.Projects {
		if containsWhitespace(name) || name == "" {
			return &ValidationError{Path: s.path, Field: "project", Reason: fmt.Sprintf("invalid project name %q", name)}
		}
		if p == nil || p.Module == "" {
			return &ValidationError{Path: s.path, Field: name, Reason: "project requires a module path"}
		}
		for envName, env := range p.Envs {
			if containsWhitespace(envName) || envName == "" {
				return &ValidationError{Path: s.path, Field: name, Reason: fmt.Sprintf("invalid environment name %q", envName)}
			}
			if env == nil || env.Connection == nil {
				return &ValidationError{Path: s.path, Field: name + "." + envName, Reason: "environment requires a connection"}
			}
			var err error
			switch c := env.Connection.(type) {
			case *SqliteConnection:
				err = c.validate()
			case *PostgresConnection:
				err = c.validate()
			}
			if err != nil {
				return &ValidationError{Path: s.path, Field: name + "." + envName, Reason: err.Error()}
			}
		}
	}
	return nil
}

// rerootAbsolute resolves every stored path against root. Applied once,
// at load time.
func (s *Settings) rerootAbsolute(root string) {
	for _, p := range s.Projects {
		p.Module = absAgainst(root, p.Module)
		for _, env := range p.Envs {
			if c, ok := env.Connection.(*SqliteConnection); ok {
				c.Path = absAgainst(root, c.Path)
			}
		}
	}
}

// rerootRelative rewrites every path relative to root. Applied once, on
// a clone, at save time.
func (s *Settings) rerootRelative(root string) error {
	for name, p := range s.Projects {
		rel, err := relAgainst(root, p.Module)
		if err != nil {
			return fmt.Errorf("project %q: %w", name, err)
		}
		p.Module = rel
		for envName, env := range p.Envs {
			c, ok := env.Connection.(*SqliteConnection)
			if !ok {
				continue
			}
			rel, err := relAgainst(root, c.Path)
			if err != nil {
				return fmt.Errorf("environment %s.%s: %w", name, envName, err)
			}
			c.Path = rel
		}
	}
	return nil
}

func (s *Settings) clone() *Settings {
	out := &Settings{Projects: make(map[string]*Project, len(s.Projects)), path: s.path}
	for name, p := range s.Projects {
		cp := &Project{Module: p.Module, Envs: make(map[string]*Environment, len(p.Envs))}
		for envName, env := range p.Envs {
			ce := &Environment{Role: env.Role}
			switch c := env.Connection.(type) {
			case *SqliteConnection:
				dup := *c
				ce.Connection = &dup
			case *PostgresConnection:
				dup := *c
				ce.Connection = &dup
			}
			cp.Envs[envName] = ce
		}
		out.Projects[name] = cp
	}
	return out
}

func absAgainst(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func relAgainst(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("cannot express %q relative to %q: %w", path, root, err)
	}
	return rel, nil
}

func containsWhitespace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
