package sink

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"scriptmenu/internal/model"
)

// DateLayout renders timestamps like a JavaScript Date string.
const DateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// FileLogger appends one record per successful launch to a log file. The file
// is opened, appended to and closed for every record; no handle is kept.
type FileLogger struct {
	path string
	now  func() time.Time
}

// NewFileLogger returns a logger appending to path.
func NewFileLogger(path string) *FileLogger {
	return &FileLogger{path: path, now: time.Now}
}

// WithClock returns a copy of l using now for record timestamps.
func (l *FileLogger) WithClock(now func() time.Time) *FileLogger {
	cp := *l
	cp.now = now
	return &cp
}

func (l *FileLogger) Name() string { return "file-logger" }

// Path returns the log file location.
func (l *FileLogger) Path() string { return l.path }

// Deliver appends the record for c. Spawn failures are not logged.
func (l *FileLogger) Deliver(_ context.Context, c model.Completion) error {
	if c.Failed() {
		return nil
	}
	record := Record(c.Script, l.now(), c.Result.Stdout, c.Result.Stderr)

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening launch log: %w", err)
	}
	// one write per record so O_APPEND keeps concurrent records whole
	if _, err := f.WriteString(record); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending launch log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing launch log: %w", err)
	}
	return nil
}

// Record formats one log entry.
func Record(script string, at time.Time, stdout, stderr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s]: %s\n", script, at.Format(DateLayout))
	b.WriteString("STDOUT:\n")
	b.WriteString(stdout)
	b.WriteString("STDERR:\n")
	b.WriteString(stderr)
	return b.String()
}
