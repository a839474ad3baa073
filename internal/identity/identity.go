// Package identity decides when two connection configurations address
// the same physical database, and assigns migration-engine config
// sections so that each physical database gets exactly one.
package identity

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shedtool/shed/internal/settings"
)

// Key returns an opaque comparable value identifying the underlying
// physical database. Two connections are the same database iff their
// keys are equal. The postgres schema is deliberately excluded: two
// environments on the same server/database with different schemas are
// one physical target. Computation is pure string/path normalization;
// nothing here touches the filesystem or the network.
func Key(conn settings.Connection) string {
	switch c := conn.(type) {
	case *settings.SqliteConnection:
		path := c.Path
		if !filepath.IsAbs(path) {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		return "sqlite:" + filepath.Clean(path)
	case *settings.PostgresConnection:
		host := strings.ToLower(c.Host)
		if host == "" {
			host = "127.0.0.1"
		}
		port := c.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("postgres:%s:%s@%s:%d/%s", c.Username, c.Password, host, port, c.Database)
	}
	// Connection is a closed variant set; a new variant must be handled above.
	panic(fmt.Sprintf("identity: unknown connection variant %T", conn))
}

// SameDatabase reports whether a and b address the same physical
// database regardless of schema.
func SameDatabase(a, b settings.Connection) bool {
	return Key(a) == Key(b)
}
