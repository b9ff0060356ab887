package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleLogger writes leveled log lines to stderr.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	logger  *log.Logger
	verbose bool
}

// Option configures a ConsoleLogger.
type Option func(*log.Options, *io.Writer)

// WithWriter sends output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(_ *log.Options, out *io.Writer) { *out = w }
}

// WithoutTimestamps drops the time column. Used when another component
// (the progress display, a test) already frames the output.
func WithoutTimestamps() Option {
	return func(o *log.Options, _ *io.Writer) { o.ReportTimestamp = false }
}

// WithPrefix tags every line, e.g. with the run id.
func WithPrefix(prefix string) Option {
	return func(o *log.Options, _ *io.Writer) { o.Prefix = prefix }
}

// NewConsoleLogger creates a new ConsoleLogger.
// If verbose is true, Verbose() calls are written at debug level.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool, opts ...Option) *ConsoleLogger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	options := log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	}
	var w io.Writer = os.Stderr
	for _, opt := range opts {
		opt(&options, &w)
	}
	return &ConsoleLogger{
		logger:  log.NewWithOptions(w, options),
		verbose: verbose,
	}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.logger.Debugf(format, args...)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Warn logs recoverable problems.
func (l *ConsoleLogger) Warn(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}
