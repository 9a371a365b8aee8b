// Package migrations creates and upgrades the admin tables (users, roles,
// policies, permission grants, action logs) from embedded SQL.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migration holds the up and down SQL for one version.
type Migration struct {
	Version int
	UpSQL   string
	DownSQL string
}

// Migrator applies embedded migrations with a configurable table prefix.
type Migrator struct {
	migrations  []Migration
	TablePrefix string
	Driver      string
}

// New returns a Migrator for the driver with the given table prefix.
// SQL files are written with the gadmin_ prefix; other prefixes are
// substituted on load.
func New(driver, prefix string) *Migrator {
	migs := mysqlMigrations
	if driver == "postgres" {
		migs = postgresMigrations
	}
	if prefix != "gadmin_" {
		res := make([]Migration, len(migs))
		for i, m := range migs {
			m.UpSQL = strings.ReplaceAll(m.UpSQL, "gadmin_", prefix)
			m.DownSQL = strings.ReplaceAll(m.DownSQL, "gadmin_", prefix)
			res[i] = m
		}
		migs = res
	}
	return &Migrator{migrations: migs, TablePrefix: prefix, Driver: driver}
}

func (m *Migrator) versionTable() string {
	return m.TablePrefix + "schema_version"
}

func (m *Migrator) ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (version INT NOT NULL PRIMARY KEY)", m.versionTable()))
	return err
}

// Current returns the highest applied version, 0 when nothing has run.
func (m *Migrator) Current(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(version) FROM %s", m.versionTable())) // #nosec G201 -- table name derived from trusted prefix
	var v sql.NullInt64
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// Up migrates the schema up to target. target=0 means latest.
func (m *Migrator) Up(ctx context.Context, db *sql.DB, target int) error {
	if target == 0 {
		target = len(m.migrations)
	}
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	if cur >= target {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := cur; i < target; i++ {
		if err := m.apply(ctx, tx, m.migrations[i].UpSQL, m.migrations[i].Version, false); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback: %v: %w", rbErr, err)
			}
			return err
		}
	}
	return tx.Commit()
}

// Down migrates the schema down to target version.
func (m *Migrator) Down(ctx context.Context, db *sql.DB, target int) error {
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	if target >= cur {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := cur - 1; i >= target; i-- {
		if err := m.apply(ctx, tx, m.migrations[i].DownSQL, m.migrations[i].Version, true); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback: %v: %w", rbErr, err)
			}
			return err
		}
	}
	return tx.Commit()
}

func (m *Migrator) apply(ctx context.Context, tx *sql.Tx, src string, version int, down bool) error {
	for _, stmt := range splitSQL(src) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	ph := "?"
	if m.Driver == "postgres" {
		ph = "$1"
	}
	var err error
	if down {
		_, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = %s", m.versionTable(), ph), version)
	} else {
		_, err = tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (version) VALUES (%s)", m.versionTable(), ph), version)
	}
	return err
}

// splitSQL splits a script on semicolons outside of quoted strings.
func splitSQL(src string) []string {
	var (
		res      []string
		buf      strings.Builder
		inSingle bool
		inDouble bool
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\'':
			inSingle = !inSingle
		case '"':
			inDouble = !inDouble
		case ';':
			if !inSingle && !inDouble {
				if s := strings.TrimSpace(buf.String()); s != "" {
					res = append(res, s)
				}
				buf.Reset()
				continue
			}
		}
		buf.WriteByte(c)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		res = append(res, s)
	}
	return res
}
