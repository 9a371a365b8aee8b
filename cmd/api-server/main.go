package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/faciam-dev/gadmin/internal/config"
	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/internal/server"
	"github.com/faciam-dev/gadmin/internal/storage"
)

func main() {
	env := config.FromEnv()

	dsn := flag.String("dsn", "", "database DSN of the default connection")
	driver := flag.String("driver", "mysql", "database driver (mysql, postgres, sqlite3)")
	tblPrefix := flag.String("table-prefix", env.TablePrefix, "admin table prefix")
	addr := flag.String("addr", ":8080", "listen address")
	schemaDir := flag.String("schema-dir", env.SchemaDir, "directory of {model}.json schema documents")
	connections := flag.String("connections", "", "optional connections YAML for named secondary databases")
	localeDir := flag.String("locale-dir", env.LocaleDir, "directory of {locale}.yaml dictionaries")
	locale := flag.String("locale", env.Locale, "locale used to resolve i18n labels")
	watch := flag.Bool("watch-schemas", env.WatchSchema, "invalidate the schema cache when files change")
	openapi := flag.String("openapi", "", "write OpenAPI JSON and exit")
	flag.Parse()

	logger.Set(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	var db *sql.DB
	var err error
	if *dsn != "" {
		db, err = sql.Open(*driver, *dsn)
		if err != nil {
			logger.L.Error("db open", "err", err)
			os.Exit(1)
		}
		dialect := storage.DialectFor(*driver)
		if err := config.CheckPrefix(context.Background(), db, dialect, *tblPrefix); err != nil {
			logger.L.Error("prefix check", "err", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var conns map[string]storage.ConnConfig
	if *connections != "" {
		conns, err = storage.LoadConnections(*connections)
		if err != nil {
			logger.L.Error("load connections", "path", *connections, "err", err)
			os.Exit(1)
		}
	}

	api := server.New(db, server.Config{
		Driver:      *driver,
		DSN:         *dsn,
		TablePrefix: *tblPrefix,
		SchemaDir:   *schemaDir,
		LocaleDir:   *localeDir,
		Locale:      *locale,
		WatchSchema: *watch,
		Connections: conns,
	})

	if *openapi != "" {
		data, err := json.MarshalIndent(api.OpenAPI(), "", "  ")
		if err != nil {
			logger.L.Error("marshal openapi", "err", err)
			os.Exit(1)
		}
		p := filepath.Clean(*openapi)
		if err := os.WriteFile(p, data, 0o600); err != nil {
			logger.L.Error("write openapi", "err", err)
			os.Exit(1)
		}
		return
	}

	logger.L.Info("listening", "addr", *addr)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.Adapter(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.L.Error("server error", "err", err)
		os.Exit(1)
	}
}
