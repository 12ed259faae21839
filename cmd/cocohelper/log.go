package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

func ensureLogDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// buildLogger logs to stderr and, when the config names a file, to a rotated
// log file.  Every record carries the run id.
func buildLogger(cfg *Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := cfg.level()
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = io.NopCloser(nil)

	if cfg.Log.Path != "" {
		if err := ensureLogDir(cfg.Log.Path); err != nil {
			return nil, nil, errors.Wrap(err, "failed to create log directory")
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.Log.Path,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = io.MultiWriter(w, lj)
		closer = lj
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})

	return slog.New(handler).With("run_id", uuid.New().String()), closer, nil
}
