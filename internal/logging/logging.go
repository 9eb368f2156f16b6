// Package logging provides structured logging for the OData service.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with service-specific helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "odata-core").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Component returns a logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// LogRequest logs a completed HTTP request.
func (l *Logger) LogRequest(method, path string, status int, contentType string, duration time.Duration, err error) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Warn().Err(err)
	}
	event.
		Str("component", "http").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Str("content_type", contentType).
		Dur("duration_ms", duration).
		Msg("request completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(port int, entitySets int) {
	l.zlog.Info().
		Str("event", "server_start").
		Int("port", port).
		Int("entity_sets", entitySets).
		Msg("OData server starting")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown(err error) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Error().Err(err)
	}
	event.Str("event", "server_shutdown").Msg("OData server shut down")
}

var globalLogger *Logger

// InitGlobal initializes the global logger
func InitGlobal(cfg Config) *Logger {
	globalLogger = New(cfg)
	log.Logger = *globalLogger.Zerolog()
	return globalLogger
}

// Global returns the global logger instance
func Global() *Logger {
	if globalLogger == nil {
		return InitGlobal(Config{Level: "info"})
	}
	return globalLogger
}
