package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	_ "github.com/mattn/go-sqlite3"

	"github.com/faciam-dev/gadmin/internal/errs"
)

func TestRegistryDefaultAndUnknown(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	r := NewRegistry(nil)
	r.Register(DefaultConnection, db, "mysql")

	c, err := r.Get("")
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if c.DB != db {
		t.Fatal("wrong handle for default connection")
	}
	if _, ok := c.Dialect.(ormdriver.MySQLDialect); !ok {
		t.Fatalf("dialect = %T", c.Dialect)
	}

	_, err = r.Get("ghost")
	var ce *errs.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigError for unknown connection, got %v", err)
	}
}

func TestRegistryOpensConfiguredLazily(t *testing.T) {
	r := NewRegistry(map[string]ConnConfig{
		"replica": {Driver: "sqlite3", DSN: ":memory:", MaxOpenConns: 2},
	})
	c, err := r.Get("replica")
	if err != nil {
		t.Fatalf("get replica: %v", err)
	}
	if c.Driver != "sqlite3" {
		t.Fatalf("driver = %q", c.Driver)
	}
	// Second Get returns the same handle.
	c2, err := r.Get("replica")
	if err != nil {
		t.Fatalf("get replica again: %v", err)
	}
	if c != c2 {
		t.Fatal("handle not memoized")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	if _, ok := DialectFor("postgres").(ormdriver.PostgresDialect); !ok {
		t.Fatal("postgres dialect")
	}
	if _, ok := DialectFor("mysql").(ormdriver.MySQLDialect); !ok {
		t.Fatal("mysql dialect")
	}
	if _, ok := DialectFor("sqlite3").(ormdriver.MySQLDialect); !ok {
		t.Fatal("sqlite3 must use backtick quoting")
	}
}

func TestLoadConnections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connections.yaml")
	doc := `connections:
  shop:
    driver: mysql
    dsn: "shop:shop@tcp(127.0.0.1:3306)/shop"
    max_open_conns: 5
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	conns, err := LoadConnections(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, ok := conns["shop"]
	if !ok {
		t.Fatal("shop connection missing")
	}
	if cfg.Driver != "mysql" || cfg.MaxOpenConns != 5 {
		t.Fatalf("cfg = %+v", cfg)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("connections: {}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConnections(empty); err == nil {
		t.Fatal("want error for empty connections file")
	}
}

func TestScanRowsNormalizesBytes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "meta"}).
			AddRow(int64(1), []byte("ann"), nil))

	rows, err := db.Query("SELECT id, name, meta FROM t")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	recs, err := ScanRows(rows)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("recs = %d", len(recs))
	}
	if recs[0]["name"] != "ann" {
		t.Fatalf("name = %#v", recs[0]["name"])
	}
	if recs[0]["meta"] != nil {
		t.Fatalf("meta = %#v", recs[0]["meta"])
	}
}
