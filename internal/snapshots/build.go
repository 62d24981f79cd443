package snapshots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prometheas/zen-backup/internal/logging"
	"github.com/prometheas/zen-backup/internal/sqlite"
)

// Build stages the included content of profileRoot and writes it to a new
// archive at archivePath. It returns per-file warnings for databases that
// were copied through the fallback path or skipped as corrupt. On error no
// archive is left at archivePath.
func (m *Manager) Build(ctx context.Context, profileRoot, archivePath string) ([]string, error) {
	staging, err := os.MkdirTemp(m.tempDir, "zen-backup-stage-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	warnings, err := m.stage(ctx, profileRoot, staging)
	if err != nil {
		return warnings, err
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return warnings, fmt.Errorf("failed to create archive directory: %w", err)
	}
	if _, err := os.Lstat(archivePath); err == nil {
		return warnings, fmt.Errorf("archive already exists: %s", archivePath)
	}
	if err := m.archiver.Create(ctx, archivePath, staging); err != nil {
		if rmErr := os.Remove(archivePath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn().Err(rmErr).Str("path", archivePath).Msg("failed to remove partial archive")
		}
		return warnings, fmt.Errorf("failed to write archive: %w", err)
	}
	return warnings, nil
}

func (m *Manager) stage(ctx context.Context, profileRoot, staging string) ([]string, error) {
	var warnings []string

	err := filepath.WalkDir(profileRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The browser may delete files while we walk.
			if path != profileRoot && os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to read profile: %w", err)
		}
		if path == profileRoot {
			return nil
		}

		rel, err := filepath.Rel(profileRoot, path)
		if err != nil {
			return err
		}
		slashRel := filepath.ToSlash(rel)
		if !ShouldInclude(slashRel, d.Name(), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst := filepath.Join(staging, rel)
		switch {
		case d.IsDir():
			if err := os.MkdirAll(dst, 0755); err != nil {
				return fmt.Errorf("failed to stage directory %s: %w", slashRel, err)
			}
			return nil
		case !d.Type().IsRegular():
			logging.Debug().Str("path", slashRel).Msg("skipping non-regular file")
			return nil
		case sqlite.IsDatabaseFile(d.Name()):
			warning, err := m.stageDatabase(ctx, path, dst, slashRel)
			if warning != "" {
				warnings = append(warnings, warning)
			}
			return err
		default:
			if err := copyFile(path, dst); err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return fmt.Errorf("failed to stage %s: %w", slashRel, err)
			}
			return nil
		}
	})
	return warnings, err
}

func (m *Manager) stageDatabase(ctx context.Context, src, dst, rel string) (string, error) {
	outcome, err := m.copier.Copy(ctx, src, dst)
	logging.Debug().Str("path", rel).Stringer("outcome", outcome).Msg("staged database")

	switch outcome {
	case sqlite.Clean:
		return "", nil
	case sqlite.FallbackUsed:
		return "fallback sqlite copy used for " + rel, nil
	case sqlite.Corrupt:
		if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
			return "", fmt.Errorf("failed to discard corrupt copy of %s: %w", rel, rmErr)
		}
		return "corrupt sqlite skipped: " + rel, nil
	default:
		if errors.Is(err, fs.ErrNotExist) && !exists(src) {
			logging.Debug().Str("path", rel).Msg("database vanished before copy, skipping")
			os.Remove(dst)
			return "", nil
		}
		return "", fmt.Errorf("failed to back up database %s: %w", rel, err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// copyFile copies a regular file, keeping its permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
