package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheas/zen-backup/internal/logging"
)

// Outcome classifies the result of copying one database file.
type Outcome int

const (
	// Clean means the hot backup succeeded and the copy passed the integrity check.
	Clean Outcome = iota
	// FallbackUsed means the checkpoint-and-copy path produced a copy that passed the integrity check.
	FallbackUsed
	// Corrupt means the source or the copy is bad. The file is skipped; the snapshot continues.
	Corrupt
	// Fatal means an I/O or engine failure that must abort the whole snapshot.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Clean:
		return "clean"
	case FallbackUsed:
		return "fallback"
	case Corrupt:
		return "corrupt"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// headerMagic opens every well-formed SQLite 3 database file.
var headerMagic = []byte("SQLite format 3\x00")

// Copier produces verified copies of database files through a Backend.
type Copier struct {
	backend       Backend
	forceFallback func(path string) bool
	markedCorrupt func(path string) bool
}

// Option configures a Copier.
type Option func(*Copier)

// WithForceFallback skips the hot backup for sources matching fn, as if the
// backup primitive had failed.
func WithForceFallback(fn func(path string) bool) Option {
	return func(c *Copier) { c.forceFallback = fn }
}

// WithCorruptionMarker classifies sources matching fn as Corrupt without
// touching the destination.
func WithCorruptionMarker(fn func(path string) bool) Option {
	return func(c *Copier) { c.markedCorrupt = fn }
}

// NewCopier creates a Copier over backend.
func NewCopier(backend Backend, opts ...Option) *Copier {
	c := &Copier{
		backend:       backend,
		forceFallback: func(string) bool { return false },
		markedCorrupt: func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MatchPathOrName returns a predicate matching a database by its full path or
// by its base name. An empty value matches nothing.
func MatchPathOrName(value string) func(string) bool {
	return func(path string) bool {
		return value != "" && (value == path || value == filepath.Base(path))
	}
}

// Copy writes a consistent copy of src to dst. The returned error is non-nil
// only together with Fatal. On Corrupt the caller discards dst.
func (c *Copier) Copy(ctx context.Context, src, dst string) (Outcome, error) {
	if c.markedCorrupt(src) {
		logging.Debug().Str("path", src).Msg("sqlite source flagged corrupt")
		return Corrupt, nil
	}

	valid, err := hasHeader(src)
	if err != nil {
		return Fatal, err
	}
	if !valid {
		logging.Debug().Str("path", src).Msg("sqlite source has no database header")
		return Corrupt, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Fatal, fmt.Errorf("failed to create database target directory: %w", err)
	}

	if !c.forceFallback(src) {
		err := c.backend.Backup(ctx, src, dst)
		if err == nil {
			return c.verify(ctx, dst, Clean)
		}
		if errors.Is(err, ErrEngineUnavailable) {
			return Fatal, err
		}
		logging.Debug().Err(err).Str("path", src).Msg("hot backup failed, falling back to checkpoint copy")
	}

	if err := c.checkpointCopy(ctx, src, dst); err != nil {
		return Fatal, err
	}
	return c.verify(ctx, dst, FallbackUsed)
}

// checkpointCopy copies the main file and any sidecars, folds the log into
// the copy, then drops the copied sidecars.
func (c *Copier) checkpointCopy(ctx context.Context, src, dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear partial database copy: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to copy database %s: %w", filepath.Base(src), err)
	}

	srcWAL, srcSHM := SidecarPaths(src)
	dstWAL, dstSHM := SidecarPaths(dst)
	for _, pair := range [][2]string{{srcWAL, dstWAL}, {srcSHM, dstSHM}} {
		if err := copyFile(pair[0], pair[1]); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to copy %s: %w", filepath.Base(pair[0]), err)
		}
	}

	if err := c.backend.Checkpoint(ctx, dst); err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return err
		}
		// The integrity check decides whether the copy is usable.
		logging.Debug().Err(err).Str("path", dst).Msg("checkpoint of fallback copy failed")
	}

	for _, p := range []string{dstWAL, dstSHM} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func (c *Copier) verify(ctx context.Context, dst string, pass Outcome) (Outcome, error) {
	ok, err := c.backend.IntegrityCheck(ctx, dst)
	if err != nil {
		return Fatal, fmt.Errorf("integrity check of %s could not run: %w", filepath.Base(dst), err)
	}
	if !ok {
		logging.Debug().Str("path", dst).Msg("integrity check failed")
		return Corrupt, nil
	}
	return pass, nil
}

// Verify runs the integrity check against an installed database file.
func (c *Copier) Verify(ctx context.Context, db string) (bool, error) {
	return c.backend.IntegrityCheck(ctx, db)
}

// hasHeader reports whether path is empty or starts with the SQLite magic.
// Empty files are valid: the engine treats them as empty databases.
func hasHeader(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open database %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	buf := make([]byte, len(headerMagic))
	n, err := io.ReadFull(f, buf)
	switch {
	case n == 0 && (err == io.EOF || err == nil):
		return true, nil
	case err == io.ErrUnexpectedEOF:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to read database %s: %w", filepath.Base(path), err)
	}
	return bytes.Equal(buf, headerMagic), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
