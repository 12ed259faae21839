// Package logging holds the logger shared by the cocohelper packages to report
// soft conditions such as filtering on a missing column.
package logging

import (
	"log/slog"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// Logger returns the logger in use, falling back to slog.Default()
func Logger() *slog.Logger {

	if l := current.Load(); l != nil {
		return l
	}

	return slog.Default()
}

// SetLogger replaces the logger in use, passing nil restores slog.Default()
func SetLogger(l *slog.Logger) {
	current.Store(l)
}
