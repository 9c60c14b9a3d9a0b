package logger

import (
	"log"
	"log/slog"
)

// Printf returns a stdlib logger that forwards every line to base at the
// given level, tagged with the component name. Useful for libraries that
// only accept a Printf-style logger.
func Printf(base *slog.Logger, component string, level slog.Level) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), level)
}
