// Package snapshots builds profile snapshot archives and restores them.
package snapshots

import (
	"errors"
	"os"
	"time"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/auditlog"
	"github.com/prometheas/zen-backup/internal/platform"
	"github.com/prometheas/zen-backup/internal/sqlite"
)

var (
	ErrInvalidKind     = errors.New("invalid backup kind")
	ErrProfileNotFound = errors.New("profile not found")
	ErrArchiveNotFound = errors.New("archive not found")
	ErrBrowserRunning  = errors.New("Zen browser must be closed before restoring")
	ErrUnsafeArchive   = errors.New("invalid archive entry")
	ErrInvalidArchive  = errors.New("invalid or corrupted archive")
	ErrVerifyFailed    = errors.New("restored database failed integrity check")
	ErrMirrorFailed    = errors.New("cloud sync failed")
)

// BrowserRunningWarning is reported when a backup runs while the browser is open.
const BrowserRunningWarning = "browser is running; SQLite databases are safely backed up, but session files may be mid-write"

// Settings is the validated configuration a Manager works from.
type Settings struct {
	ProfileDir string
	LocalRoot  string
	// CloudRoot is an optional mirror root; empty disables mirroring.
	CloudRoot string

	DailyRetentionDays  int
	WeeklyRetentionDays int

	NotificationsEnabled bool
}

// RetentionDays returns the maximum archive age for kind.
func (s Settings) RetentionDays(kind archive.Kind) int {
	if kind == archive.Weekly {
		return s.WeeklyRetentionDays
	}
	return s.DailyRetentionDays
}

// Result describes one completed operation for the CLI to print.
type Result struct {
	Summary  string
	Warnings []string

	ArchivePath    string
	MirrorPath     string
	PreRestorePath string
	Pruned         []string
}

// Manager manages snapshot creation, restoration, and cleanup.
type Manager struct {
	settings Settings

	archiver archive.Backend
	copier   *sqlite.Copier
	liveness platform.LivenessProbe
	notifier platform.Notifier
	audit    *auditlog.Log

	now     func() time.Time
	cwd     string
	tempDir string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithArchiver sets the container backend.
func WithArchiver(b archive.Backend) Option {
	return func(m *Manager) { m.archiver = b }
}

// WithCopier sets the database safe-copy strategy.
func WithCopier(c *sqlite.Copier) Option {
	return func(m *Manager) { m.copier = c }
}

// WithClock sets the time source used for archive dates and log lines.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLiveness sets the browser liveness signal.
func WithLiveness(p platform.LivenessProbe) Option {
	return func(m *Manager) { m.liveness = p }
}

// WithNotifier sets where user-facing alerts go.
func WithNotifier(n platform.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithCwd sets the directory relative archive arguments resolve against.
func WithCwd(dir string) Option {
	return func(m *Manager) { m.cwd = dir }
}

// WithTempDir sets the parent directory for staging trees.
func WithTempDir(dir string) Option {
	return func(m *Manager) { m.tempDir = dir }
}

// New creates a new snapshot Manager.
func New(settings Settings, opts ...Option) *Manager {
	m := &Manager{
		settings: settings,
		archiver: archive.NewNativeBackend(),
		copier:   sqlite.NewCopier(sqlite.NewNativeBackend()),
		liveness: platform.ProcessProbe{},
		notifier: platform.NopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cwd == "" {
		m.cwd, _ = os.Getwd()
	}
	m.audit = auditlog.New(settings.LocalRoot, m.now)
	return m
}

// today returns the current UTC date used in archive and rotation names.
func (m *Manager) today() time.Time {
	return m.now().UTC()
}
