package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/config"
	"github.com/prometheas/zen-backup/internal/logging"
	"github.com/prometheas/zen-backup/internal/platform"
	"github.com/prometheas/zen-backup/internal/snapshots"
	"github.com/prometheas/zen-backup/internal/sqlite"
)

// staleAfterDays is how old the newest daily archive may get before status warns.
const staleAfterDays = 3

// Overridable in tests.
var (
	nowFunc                              = clockFromEnv
	livenessProbe platform.LivenessProbe = platform.EnvProbe(platform.ProcessProbe{})
)

// clockFromEnv honors ZEN_BACKUP_TEST_NOW (RFC 3339) so scripted runs can pin
// the date used in archive names.
func clockFromEnv() time.Time {
	if raw := strings.TrimSpace(os.Getenv("ZEN_BACKUP_TEST_NOW")); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
		logging.Warn().Str("value", raw).Msg("ignoring unparsable ZEN_BACKUP_TEST_NOW")
	}
	return time.Now()
}

// loadConfig resolves and reads the settings file.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	path, err := config.ResolvePath(configPath, cwd)
	if err != nil {
		return nil, err
	}
	logging.Debug().Str("path", path).Msg("loading config")
	return config.Load(path)
}

// newManager wires a snapshot Manager from config. Test hook variables are
// read here once and passed down as options.
func newManager(cfg *config.Config) (*snapshots.Manager, error) {
	archiver, err := archive.NewBackend(cfg.Engine.Archiver)
	if err != nil {
		return nil, err
	}
	if os.Getenv("ZEN_BACKUP_TEST_DISK_FULL") == "1" {
		archiver = diskFullArchiver{archiver}
	}

	var db sqlite.Backend = sqlite.NewNativeBackend()
	if cfg.Engine.Database == "sqlite3" {
		db = sqlite.NewCLIBackend("")
	}
	copier := sqlite.NewCopier(db,
		sqlite.WithForceFallback(sqlite.MatchPathOrName(os.Getenv("ZEN_BACKUP_TEST_FORCE_SQLITE_FALLBACK"))),
		sqlite.WithCorruptionMarker(sqlite.MatchPathOrName(os.Getenv("ZEN_BACKUP_TEST_CORRUPT_SQLITE"))),
	)

	var notifier platform.Notifier = platform.NopNotifier{}
	if cfg.Notifications.Enabled {
		n := platform.NewDesktopNotifier(cfg.Backup.LocalPath)
		n.Now = nowFunc
		notifier = n
	}

	settings := snapshots.Settings{
		ProfileDir:           cfg.Profile.Path,
		LocalRoot:            cfg.Backup.LocalPath,
		CloudRoot:            cfg.Backup.CloudPath,
		DailyRetentionDays:   cfg.Retention.DailyDays,
		WeeklyRetentionDays:  cfg.Retention.WeeklyDays,
		NotificationsEnabled: cfg.Notifications.Enabled,
	}
	logging.Debug().
		Str("profile", settings.ProfileDir).
		Str("local", settings.LocalRoot).
		Str("cloud", settings.CloudRoot).
		Str("archiver", cfg.Engine.Archiver).
		Str("database", cfg.Engine.Database).
		Msg("engine configured")

	return snapshots.New(settings,
		snapshots.WithArchiver(archiver),
		snapshots.WithCopier(copier),
		snapshots.WithClock(nowFunc),
		snapshots.WithLiveness(livenessProbe),
		snapshots.WithNotifier(notifier),
	), nil
}

// diskFullArchiver simulates running out of space mid-write.
type diskFullArchiver struct {
	archive.Backend
}

func (diskFullArchiver) Create(_ context.Context, archivePath, _ string) error {
	if err := os.WriteFile(archivePath, []byte("partial-archive"), 0644); err != nil {
		return err
	}
	return errors.New("disk full while creating archive")
}
