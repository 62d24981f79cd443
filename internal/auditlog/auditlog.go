// Package auditlog appends one line per durable operation to backup.log in
// the local archive root, building an audit trail across runs.
package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheas/zen-backup/internal/logging"
)

// FileName is the audit log's name inside the archive root.
const FileName = "backup.log"

// Level tags an audit line.
type Level string

const (
	Success Level = "SUCCESS"
	Warning Level = "WARNING"
	Error   Level = "ERROR"
	Restore Level = "RESTORE"
)

// Log writes audit lines of the form "[<RFC3339>] LEVEL: message".
type Log struct {
	root string
	now  func() time.Time
}

// New returns a Log writing to root/backup.log.
func New(root string, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{root: root, now: now}
}

// Path returns the audit log file path.
func (l *Log) Path() string {
	return filepath.Join(l.root, FileName)
}

// Append writes one line. Failures are reported to the diagnostic log and
// otherwise ignored: the audit trail never changes an operation's result.
func (l *Log) Append(level Level, message string) {
	if err := l.append(level, message); err != nil {
		logging.Warn().Err(err).Str("level", string(level)).Msg("failed to append audit log")
	}
}

// Appendf is Append with fmt.Sprintf formatting.
func (l *Log) Appendf(level Level, format string, args ...any) {
	l.Append(level, fmt.Sprintf(format, args...))
}

func (l *Log) append(level Level, message string) error {
	if err := os.MkdirAll(l.root, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	line := fmt.Sprintf("[%s] %s: %s\n", l.now().UTC().Format(time.RFC3339), level, message)
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return f.Close()
}
