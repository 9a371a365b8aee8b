// Package storage manages the physical datastore connections schemas point
// at via their connection qualifier, and the generic row scanning used for
// tables without compile-time models.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"gopkg.in/yaml.v3"

	"github.com/faciam-dev/gadmin/internal/errs"
)

// DefaultConnection is the connection name used when a schema names none.
const DefaultConnection = "default"

// ConnConfig describes one named datastore.
type ConnConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"`
}

// Conn is an opened datastore handle plus the dialect goquent needs.
type Conn struct {
	DB      *sql.DB
	Driver  string
	Dialect ormdriver.Dialect
}

// Registry opens datastores lazily by connection name.
type Registry struct {
	mu   sync.Mutex
	conf map[string]ConnConfig
	open map[string]*Conn
}

// NewRegistry returns a Registry for the given configuration.
func NewRegistry(conf map[string]ConnConfig) *Registry {
	return &Registry{conf: conf, open: make(map[string]*Conn)}
}

// Register adds or replaces a named connection backed by an existing handle.
// Used for wiring the primary handle and for tests.
func (r *Registry) Register(name string, db *sql.DB, driver string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[name] = &Conn{DB: db, Driver: driver, Dialect: DialectFor(driver)}
}

// Get returns the connection for name, opening it on first use. An empty
// name selects the default connection. Unknown names are a ConfigError: a
// schema pointing at an unconfigured datastore is an authoring bug.
func (r *Registry) Get(name string) (*Conn, error) {
	if name == "" {
		name = DefaultConnection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.open[name]; ok {
		return c, nil
	}
	cfg, ok := r.conf[name]
	if !ok {
		return nil, errs.Configf("", "connection %q is not configured", name)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errs.Storage("open "+name, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	c := &Conn{DB: db, Driver: cfg.Driver, Dialect: DialectFor(cfg.Driver)}
	r.open[name] = c
	return c, nil
}

// Close closes every opened connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for name, c := range r.open {
		if err := c.DB.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s: %w", name, err)
		}
	}
	r.open = make(map[string]*Conn)
	return first
}

// DialectFor picks the goquent dialect for a database/sql driver name.
// sqlite3 accepts MySQL-style backtick quoting and ? placeholders.
func DialectFor(driver string) ormdriver.Dialect {
	switch driver {
	case "postgres":
		return ormdriver.PostgresDialect{}
	default:
		return ormdriver.MySQLDialect{}
	}
}

type connFile struct {
	Connections map[string]ConnConfig `yaml:"connections"`
}

// LoadConnections reads a YAML connections file.
func LoadConnections(path string) (map[string]ConnConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f connFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Connections) == 0 {
		return nil, fmt.Errorf("%s: no connections defined", path)
	}
	return f.Connections, nil
}
