// Package obs sets up the structured logger shared by every binary in this
// module, generalizing the teacher's colored-console log concept
// (src/log.go) to leveled, key/value structured logging.
package obs

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures the shared logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// JSON switches to machine-readable output (for log aggregation);
	// otherwise the teacher's colored console formatter is used.
	JSON bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a *log.Logger per Options, with the process's component name
// as a permanent "component" field.
func New(component string, opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	formatter := log.TextFormatter
	if opts.JSON {
		formatter = log.JSONFormatter
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
	logger.SetLevel(parseLevel(opts.Level))
	return logger.With("component", component)
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
