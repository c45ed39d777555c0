// Package verbose provides the process-wide logger.
//
// Debug messages are printed only after Enable (the --verbose flag). Warnings
// are always printed. Output is a zerolog console stream on stderr.
package verbose

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	enabled bool
	noColor bool
	writer  io.Writer = os.Stderr
	logger            = build(os.Stderr, false, false)
)

// build creates the console logger for the given writer and verbosity.
func build(w io.Writer, debug, plain bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    plain,
	}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// rebuild replaces the logger. Callers must hold mu.
func rebuild() {
	logger = build(writer, enabled, noColor)
}

// Enable turns on verbose logging and allows debug messages to be printed.
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
	rebuild()
}

// Disable turns off verbose logging. Warnings are still printed.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
	rebuild()
}

// IsEnabled returns whether verbose logging is currently enabled.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetWriter sets the output writer for log messages.
//
// Parameters:
//   - w: The io.Writer to use for output; if nil, the writer remains unchanged
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w != nil {
		writer = w
		rebuild()
	}
}

// SetNoColor disables ANSI colors in log output.
func SetNoColor(v bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = v
	rebuild()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Logger returns a logger tagged with a component field.
//
// Parameters:
//   - component: Name of the subsystem, e.g. "probe" or "apply"
//
// Returns:
//   - zerolog.Logger: Child logger; events below the active level are discarded
//
// Example:
//
//	log := verbose.Logger("probe")
//	log.Debug().Str("package", name).Msg("staged")
func Logger(component string) zerolog.Logger {
	l := current()
	return l.With().Str("component", component).Logger()
}

// Printf prints a formatted debug message if enabled.
func Printf(format string, args ...any) {
	l := current()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}

// Info prints a debug message if enabled.
func Info(msg string) {
	l := current()
	l.Debug().Msg(msg)
}

// Infof prints a formatted debug message if enabled.
func Infof(format string, args ...any) {
	l := current()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}

// Debugf prints a formatted debug message if enabled.
func Debugf(format string, args ...any) {
	l := current()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}

// Warnf prints a formatted warning. Warnings are shown regardless of verbosity.
func Warnf(format string, args ...any) {
	l := current()
	l.Warn().Msg(fmt.Sprintf(format, args...))
}

// Operation logs the start of an operation and returns a function that logs
// its completion with the elapsed time.
//
// Example:
//
//	done := verbose.Operation(log, "probe")
//	defer done()
func Operation(l zerolog.Logger, operation string) func() {
	start := time.Now()
	l.Debug().Str("operation", operation).Msg("started")

	return func() {
		l.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("completed")
	}
}
