// Package logging provides structured logging for vaultforge components,
// built on logrus with context-aware field propagation.
package logging

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is a logging verbosity level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls logger construction.
type Config struct {
	Level     Level
	Format    string // "json" or "text"
	Service   string
	Version   string
	AddCaller bool
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Format:  "text",
		Service: "vaultforge",
	}
}

// New builds a *logrus.Logger from the given config.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}

	logger.SetReportCaller(cfg.AddCaller)

	if cfg.Service != "" {
		return logger
	}
	return logger
}

// Entry wraps a *logrus.Entry, pre-populated with a component name, and gives
// every long-lived piece of the engine (registry, dispatcher, worker, nodes)
// a consistent set of structured fields.
type Entry struct {
	entry *logrus.Entry
}

// Component returns an Entry tagged with the given component name.
func Component(logger *logrus.Logger, name string) *Entry {
	return &Entry{entry: logger.WithField("component", name)}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: e.entry.WithField(key, value)}
}

func (e *Entry) WithFields(fields map[string]interface{}) *Entry {
	return &Entry{entry: e.entry.WithFields(fields)}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{entry: e.entry.WithError(err)}
}

// WithWorkflow tags the entry with the workflow id, the field every
// registry/dispatcher/executor log line is keyed on.
func (e *Entry) WithWorkflow(id string) *Entry {
	return e.WithField("workflow_id", id)
}

// WithContext copies a request id out of ctx, if the HTTP layer set one.
func (e *Entry) WithContext(ctx context.Context) *Entry {
	if v := ctx.Value(ctxKeyRequestID); v != nil {
		return e.WithField("request_id", v)
	}
	return e
}

func (e *Entry) Debug(args ...interface{}) { e.entry.Debug(args...) }
func (e *Entry) Info(args ...interface{})  { e.entry.Info(args...) }
func (e *Entry) Warn(args ...interface{})  { e.entry.Warn(args...) }
func (e *Entry) Error(args ...interface{}) { e.entry.Error(args...) }

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// WithRequestID stashes a request id on the context for later log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}
