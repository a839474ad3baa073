package settings

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The connection variant is discriminated on disk by a "type" field
// inside the connection mapping. Marshaling goes through per-variant
// structs so field order in the output is stable.

type sqliteYAML struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

type postgresYAML struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Schema   string `yaml:"schema,omitempty"`
}

type environmentYAML struct {
	Role       string      `yaml:"role,omitempty"`
	Connection interface{} `yaml:"connection"`
}

func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Role       string    `yaml:"role"`
		Connection yaml.Node `yaml:"connection"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Connection.Kind == 0 {
		return fmt.Errorf("environment requires a connection")
	}

	var tag struct {
		Type string `yaml:"type"`
	}
	if err := raw.Connection.Decode(&tag); err != nil {
		return err
	}

	switch tag.Type {
	case "sqlite":
		var c sqliteYAML
		if err := raw.Connection.Decode(&c); err != nil {
			return err
		}
		e.Connection = &SqliteConnection{Path: c.Path}
	case "postgres":
		c := defaultPostgresConnection()
		raw2 := postgresYAML{
			Host:     c.Host,
			Port:     c.Port,
			Username: c.Username,
			Password: c.Password,
			Database: c.Database,
		}
		if err := raw.Connection.Decode(&raw2); err != nil {
			return err
		}
		e.Connection = &PostgresConnection{
			Host:     raw2.Host,
			Port:     raw2.Port,
			Username: raw2.Username,
			Password: raw2.Password,
			Database: raw2.Database,
			Schema:   raw2.Schema,
		}
	default:
		return fmt.Errorf("unknown connection type %q", tag.Type)
	}

	e.Role = raw.Role
	return nil
}

func (e Environment) MarshalYAML() (interface{}, error) {
	out := environmentYAML{Role: e.Role}
	switch c := e.Connection.(type) {
	case *SqliteConnection:
		out.Connection = sqliteYAML{Type: c.Type(), Path: c.Path}
	case *PostgresConnection:
		out.Connection = postgresYAML{
			Type:     c.Type(),
			Host:     c.Host,
			Port:     c.Port,
			Username: c.Username,
			Password: c.Password,
			Database: c.Database,
			Schema:   c.Schema,
		}
	default:
		return nil, fmt.Errorf("environment has no connection")
	}
	return out, nil
}
