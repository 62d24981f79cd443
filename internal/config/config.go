// Package config loads the zen-backup settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/prometheas/zen-backup/internal/logging"
)

// FileName is the settings file name inside the config directory.
const FileName = "settings.toml"

// ErrNotFound reports that no settings file exists at the resolved path.
var ErrNotFound = errors.New("config file not found")

// Config is the parsed and path-expanded settings file.
type Config struct {
	Profile       ProfileConfig       `toml:"profile"`
	Backup        BackupConfig        `toml:"backup"`
	Retention     RetentionConfig     `toml:"retention"`
	Schedule      ScheduleConfig      `toml:"schedule"`
	Notifications NotificationsConfig `toml:"notifications"`
	Engine        EngineConfig        `toml:"engine"`

	// Path is the file the config was loaded from.
	Path string `toml:"-"`
}

type ProfileConfig struct {
	Path string `toml:"path"`
}

type BackupConfig struct {
	LocalPath string `toml:"local_path"`
	CloudPath string `toml:"cloud_path"`
}

type RetentionConfig struct {
	DailyDays  int `toml:"daily_days"`
	WeeklyDays int `toml:"weekly_days"`
}

// ScheduleConfig is informational here; installing the OS scheduler entries
// is done outside this tool's backup engine.
type ScheduleConfig struct {
	DailyTime  string `toml:"daily_time"`
	WeeklyDay  string `toml:"weekly_day"`
	WeeklyTime string `toml:"weekly_time"`
}

type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`
}

// EngineConfig selects the archive and database backends.
type EngineConfig struct {
	// Archiver is "auto", "tar" or "native".
	Archiver string `toml:"archiver"`
	// Database is "native" or "sqlite3".
	Database string `toml:"database"`
}

// Default returns the settings used for keys absent from the file.
func Default() *Config {
	return &Config{
		Profile: ProfileConfig{Path: defaultProfilePath()},
		Backup:  BackupConfig{LocalPath: filepath.Join(homeDir(), "zen-backups")},
		Retention: RetentionConfig{
			DailyDays:  30,
			WeeklyDays: 84,
		},
		Schedule: ScheduleConfig{
			DailyTime:  "12:30",
			WeeklyDay:  "Sunday",
			WeeklyTime: "02:00",
		},
		Notifications: NotificationsConfig{Enabled: true},
		Engine:        EngineConfig{Archiver: "auto", Database: "native"},
	}
}

// Dir returns the zen-backup config directory, respecting XDG_CONFIG_HOME.
// On Windows it lives under %APPDATA%.
func Dir() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "zen-profile-backup"), nil
		}
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "zen-profile-backup"), nil
}

// ResolvePath picks the settings file: an explicit path, then
// ZEN_BACKUP_CONFIG, then the default location. Relative paths resolve
// against cwd.
func ResolvePath(explicit, cwd string) (string, error) {
	p := explicit
	if p == "" {
		p = strings.TrimSpace(os.Getenv("ZEN_BACKUP_CONFIG"))
	}
	if p != "" {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the settings file at path. A missing file returns an error
// wrapping ErrNotFound.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(string(data), path)
}

// Parse decodes settings text. path anchors relative paths and is recorded
// in the result.
func Parse(text, path string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}
	for _, key := range md.Undecoded() {
		logging.Debug().Str("key", key.String()).Msg("ignoring unknown config key")
	}

	cfg.Path = path
	base := filepath.Dir(path)
	cfg.Profile.Path = ExpandPath(cfg.Profile.Path, base)
	cfg.Backup.LocalPath = ExpandPath(cfg.Backup.LocalPath, base)
	if cfg.Backup.CloudPath != "" {
		cfg.Backup.CloudPath = ExpandPath(cfg.Backup.CloudPath, base)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Profile.Path) == "" {
		return errors.New("profile.path must not be empty")
	}
	if strings.TrimSpace(c.Backup.LocalPath) == "" {
		return errors.New("backup.local_path must not be empty")
	}
	if c.Retention.DailyDays < 0 || c.Retention.WeeklyDays < 0 {
		return errors.New("retention days must not be negative")
	}
	switch c.Engine.Archiver {
	case "auto", "tar", "native":
	default:
		return fmt.Errorf("engine.archiver must be auto, tar or native, got %q", c.Engine.Archiver)
	}
	switch c.Engine.Database {
	case "native", "sqlite3":
	default:
		return fmt.Errorf("engine.database must be native or sqlite3, got %q", c.Engine.Database)
	}
	return nil
}

var (
	bracedVar  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	bareVar    = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	percentVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)
)

// ExpandPath expands ~, $VAR, ${VAR} and %VAR%, then resolves a relative
// result against base. Unset variables expand to "".
func ExpandPath(p, base string) string {
	switch {
	case p == "~":
		p = homeDir()
	case strings.HasPrefix(p, "~/"), strings.HasPrefix(p, `~\`):
		p = filepath.Join(homeDir(), p[2:])
	}

	lookup := func(re *regexp.Regexp) func(string) string {
		return func(m string) string {
			return os.Getenv(re.FindStringSubmatch(m)[1])
		}
	}
	p = bracedVar.ReplaceAllStringFunc(p, lookup(bracedVar))
	p = bareVar.ReplaceAllStringFunc(p, lookup(bareVar))
	p = percentVar.ReplaceAllStringFunc(p, lookup(percentVar))

	if base != "" && !filepath.IsAbs(p) {
		return filepath.Join(base, p)
	}
	return p
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	if home := os.Getenv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

func defaultProfilePath() string {
	home := homeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "zen", "Profiles", "default")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "zen", "Profiles", "default")
	default:
		return filepath.Join(home, ".zen", "default")
	}
}
