package snapshots

import (
	"archive/tar"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/platform"
)

var jan16 = time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)

type env struct {
	root     string
	settings Settings
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	return &env{
		root: root,
		settings: Settings{
			ProfileDir:          filepath.Join(root, "profile"),
			LocalRoot:           filepath.Join(root, "backups"),
			DailyRetentionDays:  30,
			WeeklyRetentionDays: 84,
		},
	}
}

func (e *env) manager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	base := []Option{
		WithArchiver(archive.NewNativeBackend()),
		WithClock(func() time.Time { return jan16 }),
		WithLiveness(platform.Fixed(false)),
		WithCwd(e.root),
		WithTempDir(t.TempDir()),
	}
	return New(e.settings, append(base, opts...)...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func createDatabase(t *testing.T, path string, rows int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE moz_places (id INTEGER PRIMARY KEY, url TEXT NOT NULL)")
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err = db.Exec("INSERT INTO moz_places (url) VALUES (?)", "https://example.com/")
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM moz_places").Scan(&n))
	return n
}

// seedProfile writes a profile with included and excluded content.
func seedProfile(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "prefs.js"), `user_pref("browser.startup.page", 3);`)
	writeFile(t, filepath.Join(dir, "sessionstore-backups", "recovery.jsonlz4"), "session")
	writeFile(t, filepath.Join(dir, "storage", "default", "moz-extension+++1234", "ls", "usage"), "ext")
	createDatabase(t, filepath.Join(dir, "places.sqlite"), 5)

	writeFile(t, filepath.Join(dir, "cookies.sqlite"), "secret cookies")
	writeFile(t, filepath.Join(dir, "logins.json"), "{}")
	writeFile(t, filepath.Join(dir, "places.sqlite-wal"), "stale wal")
	writeFile(t, filepath.Join(dir, ".parentlock"), "")
	writeFile(t, filepath.Join(dir, "cache2", "entries", "ABCDEF"), "cached")
	writeFile(t, filepath.Join(dir, "storage", "default", "https+++example.com", "ls", "data"), "site")
}

// writeTarGz writes a tar.gz containing the given entry names, each a small
// regular file.
func writeTarGz(t *testing.T, path string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		body := []byte("payload")
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

// snapshotFiles returns every regular file under dir keyed by slash path.
func snapshotFiles(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(dir, path)
			files[filepath.ToSlash(rel)] = readFile(t, path)
		}
		return nil
	}))
	return files
}

// failingArchiver leaves a partial file behind and reports a disk-full error.
type failingArchiver struct {
	*archive.NativeBackend
}

func (failingArchiver) Create(_ context.Context, archivePath, _ string) error {
	if err := os.WriteFile(archivePath, []byte("partial"), 0644); err != nil {
		return err
	}
	return errors.New("no space left on device")
}

type recordingNotifier struct {
	titles []string
}

func (n *recordingNotifier) Notify(_ context.Context, title, _ string) {
	n.titles = append(n.titles, title)
}
