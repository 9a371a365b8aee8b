// Package logger exposes the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// L is the package level logger used across the application.
var L = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Set replaces the default logger with the provided one.
func Set(l *slog.Logger) {
	if l != nil {
		L = l
	}
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return L.With(args...)
}
