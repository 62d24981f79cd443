package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Parse(`
[profile]
path = "/profiles/zen"

[backup]
local_path = "/backups/zen"
`, filepath.Join(dir, FileName))
	require.NoError(t, err)

	assert.Equal(t, "/profiles/zen", cfg.Profile.Path)
	assert.Equal(t, "/backups/zen", cfg.Backup.LocalPath)
	assert.Empty(t, cfg.Backup.CloudPath)
	assert.Equal(t, 30, cfg.Retention.DailyDays)
	assert.Equal(t, 84, cfg.Retention.WeeklyDays)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "auto", cfg.Engine.Archiver)
	assert.Equal(t, "native", cfg.Engine.Database)
	assert.Equal(t, "Sunday", cfg.Schedule.WeeklyDay)
}

func TestParseFullFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Parse(`
[profile]
path = "profile"

[backup]
local_path = "backups"
cloud_path = "/cloud/zen"

[retention]
daily_days = 7
weekly_days = 28

[notifications]
enabled = false

[engine]
archiver = "native"
database = "sqlite3"
`, filepath.Join(dir, FileName))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "profile"), cfg.Profile.Path)
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.Backup.LocalPath)
	assert.Equal(t, "/cloud/zen", cfg.Backup.CloudPath)
	assert.Equal(t, 7, cfg.Retention.DailyDays)
	assert.Equal(t, 28, cfg.Retention.WeeklyDays)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "native", cfg.Engine.Archiver)
	assert.Equal(t, "sqlite3", cfg.Engine.Database)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bad toml", "[profile\npath = 1"},
		{"negative retention", "[retention]\ndaily_days = -1"},
		{"unknown archiver", "[engine]\narchiver = \"zip\""},
		{"unknown database", "[engine]\ndatabase = \"duckdb\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, "/etc/zen/"+FileName)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config parse error")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("[backup]\nlocal_path = \"out\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Backup.LocalPath)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("ZEN_BACKUP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	p, err := ResolvePath("custom.toml", "/work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", "custom.toml"), p)

	t.Setenv("ZEN_BACKUP_CONFIG", "env.toml")
	p, err = ResolvePath("", "/work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", "env.toml"), p)

	t.Setenv("ZEN_BACKUP_CONFIG", "")
	p, err = ResolvePath("", "/work")
	require.NoError(t, err)
	if os.Getenv("APPDATA") == "" {
		assert.Equal(t, filepath.Join("/xdg", "zen-profile-backup", FileName), p)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("ZEN_TEST_ROOT", "/data")

	tests := []struct {
		in, base, want string
	}{
		{"~", "", home},
		{"~/zen-backups", "", filepath.Join(home, "zen-backups")},
		{"$ZEN_TEST_ROOT/zen", "", "/data/zen"},
		{"${ZEN_TEST_ROOT}/zen", "", "/data/zen"},
		{"%ZEN_TEST_ROOT%/zen", "", "/data/zen"},
		{"relative/dir", "/etc/zen", filepath.Join("/etc/zen", "relative/dir")},
		{"/abs/dir", "/etc/zen", "/abs/dir"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in, tt.base), tt.in)
	}
}
