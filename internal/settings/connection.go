package settings

import (
	"fmt"
	"net/url"
	"regexp"
)

// SchemaPattern validates a postgres schema identifier (and the runtime
// tenant selector, which overrides it).
var SchemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Connection is a database connection configuration. The variant set is
// closed: sqlite (single file) or postgres (network).
type Connection interface {
	// Type returns the discriminator stored in the settings file.
	Type() string
	// DSN returns the SQLAlchemy-style connection URL.
	DSN() string
	// SchemaName returns the configured schema, or "" when the variant
	// has no schema concept.
	SchemaName() string

	isConnection()
}

// SqliteConnection points at a single-file database. The path is stored
// relative to the settings file on disk and held absolute in memory.
type SqliteConnection struct {
	Path string `yaml:"path"`
}

func (*SqliteConnection) Type() string { return "sqlite" }

func (c *SqliteConnection) DSN() string {
	return "sqlite:///" + c.Path
}

func (*SqliteConnection) SchemaName() string { return "" }

func (*SqliteConnection) isConnection() {}

// PostgresConnection describes a network database. Schema is optional and
// deliberately not part of connection identity (see internal/identity).
type PostgresConnection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Schema   string `yaml:"schema,omitempty"`
}

func (*PostgresConnection) Type() string { return "postgres" }

func (c *PostgresConnection) DSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s",
		c.Username, url.QueryEscape(c.Password), c.Host, c.Port, c.Database)
}

func (c *PostgresConnection) SchemaName() string { return c.Schema }

func (*PostgresConnection) isConnection() {}

func defaultPostgresConnection() PostgresConnection {
	return PostgresConnection{
		Host:     "127.0.0.1",
		Port:     5432,
		Username: "postgres",
		Password: "postgres",
		Database: "postgres",
	}
}

func (c *PostgresConnection) validate() error {
	if containsWhitespace(c.Database) || c.Database == "" {
		return fmt.Errorf("database name %q must be non-empty and contain no whitespace", c.Database)
	}
	if c.Schema != "" && !SchemaPattern.MatchString(c.Schema) {
		return fmt.Errorf("schema %q is not a simple identifier", c.Schema)
	}
	return nil
}

func (c *SqliteConnection) validate() error {
	if c.Path == "" {
		return fmt.Errorf("sqlite connection requires a path")
	}
	return nil
}
