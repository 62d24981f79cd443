package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// NativeBackend runs backup, checkpoint and integrity checks in process using
// the pure-Go SQLite driver.
type NativeBackend struct{}

// NewNativeBackend returns a Backend that needs no external tools.
func NewNativeBackend() *NativeBackend {
	return &NativeBackend{}
}

// open opens path with a single connection, since SQLite only allows one
// writer at a time and every operation here is a single statement.
func open(path string, readOnly bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path, readOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// dsn builds a file: URI so the open mode can be passed as a query parameter.
func dsn(path string, readOnly bool) string {
	p := filepath.ToSlash(path)
	if filepath.VolumeName(path) != "" {
		p = "/" + p
	}
	p = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(p)
	if readOnly {
		return "file:" + p + "?mode=ro"
	}
	return "file:" + p
}

// Backup copies src into dst with VACUUM INTO, which reads one consistent
// snapshot of the source including committed WAL frames.
func (b *NativeBackend) Backup(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("failed to stat source database: %w", err)
	}
	// VACUUM INTO refuses to overwrite an existing file.
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear backup target: %w", err)
	}

	db, err := open(src, true)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("hot backup of %s failed: %w", filepath.Base(src), err)
	}
	return nil
}

// Checkpoint runs a FULL checkpoint against db.
func (b *NativeBackend) Checkpoint(ctx context.Context, db string) error {
	conn, err := open(db, false)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA wal_checkpoint(FULL)"); err != nil {
		return fmt.Errorf("checkpoint of %s failed: %w", filepath.Base(db), err)
	}
	return nil
}

// IntegrityCheck runs PRAGMA integrity_check. Query failures such as "file is
// not a database" count as a failed check, not as an error.
func (b *NativeBackend) IntegrityCheck(ctx context.Context, db string) (bool, error) {
	if _, err := os.Stat(db); err != nil {
		return false, fmt.Errorf("failed to stat database: %w", err)
	}

	conn, err := open(db, false)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return false, nil
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return false, nil
		}
		lines = append(lines, line)
	}
	if rows.Err() != nil {
		return false, nil
	}

	return len(lines) == 1 && strings.EqualFold(strings.TrimSpace(lines[0]), "ok"), nil
}
