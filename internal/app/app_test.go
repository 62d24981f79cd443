package app

import (
	"archive/tar"
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

type cliEnv struct {
	dir     string
	config  string
	profile string
	backups string
}

// newCLIEnv writes a profile and a settings file using the in-process
// archiver, and pins the clock and liveness signal.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("ZEN_BACKUP_CONFIG", "")
	t.Setenv("ZEN_BACKUP_TEST_NOW", "2026-01-16T12:00:00Z")
	t.Setenv("ZEN_BACKUP_BROWSER_RUNNING", "0")
	t.Setenv("NO_COLOR", "1")

	dir := t.TempDir()
	e := &cliEnv{
		dir:     dir,
		config:  filepath.Join(dir, "settings.toml"),
		profile: filepath.Join(dir, "profile"),
		backups: filepath.Join(dir, "backups"),
	}

	settings := `[profile]
path = "profile"

[backup]
local_path = "backups"

[notifications]
enabled = false

[engine]
archiver = "native"
database = "native"
`
	mustWrite(t, e.config, settings)
	mustWrite(t, filepath.Join(e.profile, "prefs.js"), "original prefs")
	mustWrite(t, filepath.Join(e.profile, "cookies.sqlite"), "secret")

	db, err := sql.Open("sqlite", filepath.Join(e.profile, "places.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE moz_places (id INTEGER PRIMARY KEY, url TEXT)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO moz_places (url) VALUES ('https://zen-browser.app')"); err != nil {
		t.Fatal(err)
	}
	return e
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// run executes the root command with args and captures its output.
func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(append([]string{"--config", e.config}, args...))
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
		configPath = ""
	}()

	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "zen-backup" {
		t.Errorf("expected Use to be 'zen-backup', got '%s'", RootCmd.Use)
	}
	if RootCmd.Short == "" || RootCmd.Long == "" {
		t.Error("expected Short and Long descriptions to be set")
	}

	for _, name := range []string{"config", "debug", "log-file"} {
		if RootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}

	found := map[string]bool{}
	for _, cmd := range RootCmd.Commands() {
		found[cmd.Name()] = true
	}
	for _, want := range []string{"backup", "restore", "list", "status", "prune", "version"} {
		if !found[want] {
			t.Errorf("expected command %q to be registered", want)
		}
	}
}

func TestBackupAndList(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "backup", "daily")
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}
	archivePath := filepath.Join(e.backups, "daily", "zen-backup-daily-2026-01-16.tar.gz")
	if !strings.Contains(stdout, "Created daily backup: "+archivePath) {
		t.Errorf("unexpected backup output: %q", stdout)
	}
	if _, err := os.Stat(archivePath); err != nil {
		t.Errorf("archive not written: %v", err)
	}

	stdout, _, err = e.run(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(stdout, "daily:\n  zen-backup-daily-2026-01-16.tar.gz (") {
		t.Errorf("unexpected list output: %q", stdout)
	}
	if !strings.Contains(stdout, "weekly:\n") {
		t.Errorf("list output missing weekly section: %q", stdout)
	}
}

func TestListEmptyAndMissing(t *testing.T) {
	e := newCLIEnv(t)

	if _, _, err := e.run(t, "list"); err == nil || !strings.Contains(err.Error(), "backup directory not found") {
		t.Errorf("expected missing directory error, got %v", err)
	}

	if err := os.MkdirAll(e.backups, 0755); err != nil {
		t.Fatal(err)
	}
	stdout, _, err := e.run(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "No backups found (empty backup directory).\n" {
		t.Errorf("unexpected list output: %q", stdout)
	}
}

func TestBackupRejectsInvalidKind(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run(t, "backup", "hourly")
	if err == nil || !strings.Contains(err.Error(), "daily or weekly") {
		t.Errorf("expected kind error, got %v", err)
	}
}

func TestBackupDiskFull(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv("ZEN_BACKUP_TEST_DISK_FULL", "1")

	_, _, err := e.run(t, "backup", "weekly")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected disk full error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.backups, "weekly", "zen-backup-weekly-2026-01-16.tar.gz")); !os.IsNotExist(err) {
		t.Errorf("partial archive should have been removed, stat err = %v", err)
	}
}

func TestBackupForcedFallbackWarns(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv("ZEN_BACKUP_TEST_FORCE_SQLITE_FALLBACK", "places.sqlite")

	_, stderr, err := e.run(t, "backup", "daily")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "Warning: fallback sqlite copy used for places.sqlite") {
		t.Errorf("expected fallback warning, got %q", stderr)
	}
}

func TestRestoreCommand(t *testing.T) {
	e := newCLIEnv(t)
	if _, _, err := e.run(t, "backup", "daily"); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(e.profile, "prefs.js"), "edited after backup")

	stdout, _, err := e.run(t, "restore", "zen-backup-daily-2026-01-16.tar.gz")
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(stdout, "Restored profile from zen-backup-daily-2026-01-16.tar.gz") {
		t.Errorf("unexpected restore output: %q", stdout)
	}

	data, err := os.ReadFile(filepath.Join(e.profile, "prefs.js"))
	if err != nil || string(data) != "original prefs" {
		t.Errorf("prefs.js = %q, %v; want original prefs", data, err)
	}
	if _, err := os.Stat(filepath.Join(e.profile, "cookies.sqlite")); !os.IsNotExist(err) {
		t.Errorf("cookies.sqlite should not be restored")
	}
	saved, err := os.ReadFile(filepath.Join(e.profile+".pre-restore-2026-01-16", "prefs.js"))
	if err != nil || string(saved) != "edited after backup" {
		t.Errorf("pre-restore prefs.js = %q, %v", saved, err)
	}
}

// writeArchive writes a tar.gz at path holding files.
func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRestoreVerifyFailureReportsPreservedProfile(t *testing.T) {
	e := newCLIEnv(t)
	writeArchive(t, filepath.Join(e.backups, "daily", "zen-backup-daily-2026-01-15.tar.gz"), map[string]string{
		"prefs.js":      "restored prefs",
		"places.sqlite": "not a database",
	})

	_, stderr, err := e.run(t, "restore", "zen-backup-daily-2026-01-15.tar.gz")
	if err == nil {
		t.Fatal("expected restore to fail verification")
	}
	preserved := e.profile + ".pre-restore-2026-01-16"
	if !strings.Contains(stderr, "Previous profile preserved at: "+preserved) {
		t.Errorf("stderr should name the preserved profile, got %q", stderr)
	}
	data, err := os.ReadFile(filepath.Join(preserved, "prefs.js"))
	if err != nil || string(data) != "original prefs" {
		t.Errorf("preserved prefs.js = %q, %v", data, err)
	}
}

func TestRestoreRefusesWhileBrowserRuns(t *testing.T) {
	e := newCLIEnv(t)
	if _, _, err := e.run(t, "backup", "daily"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ZEN_BACKUP_BROWSER_RUNNING", "1")

	_, _, err := e.run(t, "restore", "zen-backup-daily-2026-01-16.tar.gz")
	if err == nil || !strings.Contains(err.Error(), "must be closed before restoring") {
		t.Errorf("expected browser running error, got %v", err)
	}
	if _, err := os.Stat(e.profile + ".pre-restore-2026-01-16"); !os.IsNotExist(err) {
		t.Error("no pre-restore directory should exist")
	}
}

func TestStatus(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Backup directory not found") {
		t.Errorf("expected missing directory notice, got %q", stdout)
	}

	if _, _, err := e.run(t, "backup", "daily"); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = e.run(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Zen Profile Backup Status",
		"Profile path: " + e.profile,
		"Cloud sync: local only",
		"Latest daily: zen-backup-daily-2026-01-16.tar.gz",
		"No weekly backups yet",
		"Health: recent daily backup exists.",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("status missing %q:\n%s", want, stdout)
		}
	}

	t.Setenv("ZEN_BACKUP_TEST_NOW", "2026-01-25T12:00:00Z")
	stdout, _, err = e.run(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Warning: latest daily backup is stale.") {
		t.Errorf("expected stale warning:\n%s", stdout)
	}
}

func TestStatusNotInstalled(t *testing.T) {
	e := newCLIEnv(t)
	e.config = filepath.Join(e.dir, "missing.toml")

	stdout, _, err := e.run(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "Not installed\n") {
		t.Errorf("unexpected status output: %q", stdout)
	}

	if _, _, err := e.run(t, "backup", "daily"); err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected config not found error, got %v", err)
	}
}

func TestPruneCommand(t *testing.T) {
	e := newCLIEnv(t)
	old := filepath.Join(e.backups, "daily", "zen-backup-daily-2025-12-16.tar.gz")
	kept := filepath.Join(e.backups, "daily", "zen-backup-daily-2025-12-17.tar.gz")
	mustWrite(t, old, "x")
	mustWrite(t, kept, "x")

	stdout, _, err := e.run(t, "prune", "daily")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Pruned: "+old) || !strings.Contains(stdout, "Pruned 1 archive(s)") {
		t.Errorf("unexpected prune output: %q", stdout)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Errorf("archive inside retention was removed: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	e := newCLIEnv(t)

	stdout, _, err := e.run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "zen-backup "+Version) {
		t.Errorf("unexpected version output: %q", stdout)
	}
}
