// Package logger builds the process-wide zerolog logger used by every
// component. Components derive their own scoped logger via
// log.With().Str("component", name).Logger() rather than holding a
// singleton.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Config controls the base logger's verbosity and output format.
type Config struct {
	Level  string
	Pretty bool
}

// New builds a zerolog.Logger per cfg. Unknown levels default to info.
// Pretty enables a human-readable console writer for local/dev runs;
// disabled it emits line-delimited JSON suited to log aggregation.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05Z07:00"
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var writer = os.Stdout
	ctx := zerolog.New(writer).With().Timestamp().Caller()

	if cfg.Pretty {
		console := zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
		return zerolog.New(console).With().Timestamp().Caller().Logger()
	}

	return ctx.Logger()
}

// SetGlobalLogger installs l as zerolog.DefaultContextLogger, the logger
// zerolog.Ctx(ctx) returns when ctx carries none. Other package-level
// loggers are left unchanged.
func SetGlobalLogger(l zerolog.Logger) {
	zlog := l
	zerolog.DefaultContextLogger = &zlog
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
