// Package logging provides structured logging for the annotation loader
// using zerolog. Console output is human-readable when attached to a
// terminal and JSON otherwise; a load run additionally attaches a
// diagnostics file sink that captures run parameters and store activity
// the way the legacy diagnostics file did.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("mode", "append").Int("line", 42).Msg("record rejected")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger zerolog.Logger

	// Nop logger for discarding output.
	Nop = zerolog.Nop()
)

func init() {
	defaultLogger = createDefaultLogger()
}

// createDefaultLogger creates a logger with default settings.
func createDefaultLogger() zerolog.Logger {
	var writer io.Writer = os.Stderr

	if isatty() && os.Getenv("LOG_FORMAT") != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	level := getLogLevel()
	zerolog.SetGlobalLevel(level)

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger // Also update zerolog's global logger
}

// New creates a new logger with the given writer.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// NewDiagnostics creates a JSON logger writing to the given diagnostics
// file and a closer that flushes it at end of run. The diagnostics sink
// always records at debug level regardless of the global level, so the
// file is a complete trace of the run.
func NewDiagnostics(path string) (zerolog.Logger, io.Closer, error) {
	f, err := os.Create(path)
	if err != nil {
		return Nop, nil, err
	}
	logger := zerolog.New(f).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
	return logger, f, nil
}

// Tee returns a logger that writes each event to the default sink and to
// the diagnostics sink.
func Tee(diag zerolog.Logger) zerolog.Logger {
	return defaultLogger.Hook(teeHook{diag: diag})
}

// teeHook mirrors events onto the diagnostics logger.
type teeHook struct {
	diag zerolog.Logger
}

func (h teeHook) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	h.diag.WithLevel(level).Msg(message)
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Err creates a new error log event with the given error.
func Err(err error) *zerolog.Event {
	return defaultLogger.Err(err)
}

// isatty checks if stderr is a terminal.
func isatty() bool {
	if fileInfo, _ := os.Stderr.Stat(); (fileInfo.Mode() & os.ModeCharDevice) != 0 {
		return true
	}
	return false
}

// getLogLevel returns the log level from environment or defaults.
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("DEBUG") != "" {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
