// Package config holds process-wide configuration values.
package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
)

// Config holds global configuration values.
type Config struct {
	TablePrefix string // prefix of the admin system tables
	SchemaDir   string // directory of {model}.json schema documents
	LocaleDir   string // directory of {locale}.yaml dictionaries
	Locale      string
	WatchSchema bool // invalidate schema cache on file change (development)
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	return Config{
		TablePrefix: getenv("GADMIN_TABLE_PREFIX", "gadmin_"),
		SchemaDir:   getenv("GADMIN_SCHEMA_DIR", "schemas"),
		LocaleDir:   getenv("GADMIN_LOCALE_DIR", ""),
		Locale:      getenv("GADMIN_LOCALE", "en"),
		WatchSchema: os.Getenv("GADMIN_WATCH_SCHEMAS") == "1",
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// T prefixes the given table name with the configured prefix.
func (c *Config) T(name string) string {
	return c.TablePrefix + name
}

// CheckPrefix verifies that admin tables with the configured prefix exist in
// the connected database. It returns an error if none are found.
func CheckPrefix(ctx context.Context, db *sql.DB, dialect ormdriver.Dialect, prefix string) error {
	q := query.New(db, "information_schema.tables", dialect).
		SelectRaw("COUNT(*) AS cnt").
		WhereRaw("table_name LIKE :p", map[string]any{"p": prefix + "%"}).
		WithContext(ctx)

	var res struct{ Cnt int }
	if err := q.First(&res); err != nil {
		return err
	}
	if res.Cnt == 0 {
		return fmt.Errorf("no tables with prefix %q found; run migrations or set GADMIN_TABLE_PREFIX correctly", prefix)
	}
	return nil
}
