package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus levels as a string so engine config can carry it
// without importing logrus directly.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls how Configure sets up Root.
type Config struct {
	Level      Level
	JSON       bool
	TimeFormat string
}

// DefaultConfig returns sensible defaults: info level, text format.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, TimeFormat: time.RFC3339}
}

// Configure applies cfg to Root. Call once at engine construction time;
// New(component) entries derived afterward pick up the change.
func Configure(cfg Config) {
	switch cfg.Level {
	case LevelDebug:
		Root.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		Root.SetLevel(logrus.WarnLevel)
	case LevelError:
		Root.SetLevel(logrus.ErrorLevel)
	default:
		Root.SetLevel(logrus.InfoLevel)
	}

	if cfg.JSON {
		Root.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	} else {
		Root.SetFormatter(&logrus.TextFormatter{TimestampFormat: cfg.TimeFormat, FullTimestamp: true})
	}
}

// Duration logs operation timing on return; use as `defer logging.Duration(log, "insert")()`.
func Duration(log *logrus.Entry, operation string) func() {
	start := time.Now()
	return func() {
		log.WithFields(logrus.Fields{
			"operation":   operation,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("operation completed")
	}
}
