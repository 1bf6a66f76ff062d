package relay

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Trace accumulates the execution trace of one invocation. Lines are
// mirrored to slog as they are added and newline-joined into the audit row
// at the end of the run. Not safe for concurrent use; each invocation owns
// its own Trace.
type Trace struct {
	logger *slog.Logger
	lines  []string
}

// NewTrace creates a Trace mirroring to logger.
func NewTrace(logger *slog.Logger) *Trace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trace{logger: logger}
}

// Logf appends a formatted, timestamped line.
func (t *Trace) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	t.lines = append(t.lines, time.Now().Format("15:04:05.000")+" "+line)
	t.logger.Debug(line)
}

// Warnf appends a line and mirrors it at warn level.
func (t *Trace) Warnf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	t.lines = append(t.lines, time.Now().Format("15:04:05.000")+" "+line)
	t.logger.Warn(line)
}

// Join returns the newline-joined trace for the audit row.
func (t *Trace) Join() string {
	return strings.Join(t.lines, "\n")
}
