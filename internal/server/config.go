package server

import "github.com/faciam-dev/gadmin/internal/storage"

// Config holds the wiring configuration for the API server.
type Config struct {
	Driver      string
	DSN         string
	TablePrefix string
	SchemaDir   string
	LocaleDir   string
	Locale      string
	WatchSchema bool
	Connections map[string]storage.ConnConfig
}
