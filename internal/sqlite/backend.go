// Package sqlite produces consistent copies of SQLite database files that may
// be open and mid-write in another process, and verifies the result.
package sqlite

import (
	"context"
	"errors"
	"strings"
)

// ErrEngineUnavailable reports that the database engine could not be invoked
// at all. Copier treats it as fatal rather than as a per-file problem.
var ErrEngineUnavailable = errors.New("sqlite engine unavailable")

// Backend is the narrow set of database-engine operations the copier needs.
// Implementations may shell out to the sqlite3 tool or run in process.
type Backend interface {
	// Backup writes a consistent copy of src to dst while src may be open
	// elsewhere. Any error other than ErrEngineUnavailable sends the copier
	// down the checkpoint-and-copy fallback.
	Backup(ctx context.Context, src, dst string) error

	// Checkpoint folds the write-ahead log of db back into its main file.
	Checkpoint(ctx context.Context, db string) error

	// IntegrityCheck reports whether db passes PRAGMA integrity_check.
	// A non-nil error means the check could not be performed.
	IntegrityCheck(ctx context.Context, db string) (bool, error)
}

// IsDatabaseFile reports whether a profile file name is handled as a SQLite
// database rather than copied byte for byte.
func IsDatabaseFile(name string) bool {
	return strings.HasSuffix(name, ".sqlite") || strings.HasSuffix(name, ".db")
}

// SidecarPaths returns the write-ahead-log and shared-memory paths that
// accompany a database file.
func SidecarPaths(db string) (wal, shm string) {
	return db + "-wal", db + "-shm"
}
