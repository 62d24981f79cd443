package snapshots

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/auditlog"
	"github.com/prometheas/zen-backup/internal/logging"
	"github.com/prometheas/zen-backup/internal/sqlite"
)

// RestoreSnapshot replaces the live profile with the contents of the archive
// identified by arg. The previous profile is renamed aside to a pre-restore
// directory before anything is installed; that directory is never removed.
func (m *Manager) RestoreSnapshot(ctx context.Context, arg string) (*Result, error) {
	if m.liveness.BrowserRunning(ctx) {
		return nil, ErrBrowserRunning
	}

	archivePath, err := m.resolveArchive(arg)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(archivePath)
	logging.Info().Str("archive", archivePath).Msg("restoring snapshot")

	if err := m.validateArchive(ctx, archivePath); err != nil {
		m.audit.Appendf(auditlog.Error, "restore rejected %s: %v", name, err)
		return nil, err
	}

	staging, err := os.MkdirTemp(m.tempDir, "zen-backup-restore-")
	if err != nil {
		return nil, fmt.Errorf("failed to create restore staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := m.archiver.Extract(ctx, archivePath, staging); err != nil {
		logging.Debug().Err(err).Str("archive", archivePath).Msg("extraction failed")
		m.audit.Appendf(auditlog.Error, "restore failed to extract %s", name)
		return nil, fmt.Errorf("%w: %s", ErrInvalidArchive, name)
	}

	profile := m.settings.ProfileDir
	preRestore, err := rotateProfile(profile, m.today().Format(archive.DateLayout))
	if err != nil {
		return nil, err
	}
	result := &Result{ArchivePath: archivePath, PreRestorePath: preRestore}

	databases, err := install(staging, profile)
	if err != nil {
		m.audit.Appendf(auditlog.Error, "restore from %s failed during install: %v", name, err)
		return result, fmt.Errorf("failed to install restored profile (previous profile kept at %s): %w", preRestore, err)
	}

	var failed []string
	for _, rel := range databases {
		ok, err := m.copier.Verify(ctx, filepath.Join(profile, rel))
		if err != nil || !ok {
			logging.Debug().Err(err).Str("path", rel).Msg("restored database failed verification")
			failed = append(failed, filepath.ToSlash(rel))
		}
	}
	if len(failed) > 0 {
		m.audit.Appendf(auditlog.Error, "restore from %s failed verification: %s", name, strings.Join(failed, ", "))
		return result, fmt.Errorf("%w in %s: %s (previous profile kept at %s)",
			ErrVerifyFailed, name, strings.Join(failed, ", "), preRestore)
	}

	m.audit.Appendf(auditlog.Restore, "restored profile from %s", name)
	result.Summary = fmt.Sprintf("Restored profile from %s; previous profile saved to %s", name, preRestore)
	return result, nil
}

// resolveArchive finds arg as a path (absolute or relative to cwd), then in
// the local root, then in its daily and weekly directories. First match wins.
func (m *Manager) resolveArchive(arg string) (string, error) {
	var candidates []string
	if filepath.IsAbs(arg) {
		candidates = append(candidates, arg)
	} else {
		candidates = append(candidates, filepath.Join(m.cwd, arg))
	}
	root := m.settings.LocalRoot
	candidates = append(candidates,
		filepath.Join(root, arg),
		filepath.Join(root, string(archive.Daily), arg),
		filepath.Join(root, string(archive.Weekly), arg),
	)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrArchiveNotFound, arg)
}

// validateArchive lists the archive and rejects it if any entry would land
// outside the extraction directory.
func (m *Manager) validateArchive(ctx context.Context, archivePath string) error {
	entries, err := m.archiver.List(ctx, archivePath)
	if err != nil {
		logging.Debug().Err(err).Str("archive", archivePath).Msg("failed to list archive")
		return fmt.Errorf("%w: %s", ErrInvalidArchive, filepath.Base(archivePath))
	}
	for _, raw := range entries {
		if _, err := SanitizeEntry(raw); err != nil {
			return err
		}
	}
	return nil
}

var driveLetter = regexp.MustCompile(`^[A-Za-z]:`)

// SanitizeEntry normalizes an archive entry name and returns it relative to
// the extraction root. Rooted, drive-letter and parent-directory entries are
// rejected with ErrUnsafeArchive. The archive root itself yields "".
func SanitizeEntry(raw string) (string, error) {
	p := strings.ReplaceAll(raw, `\`, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	if p == "." {
		p = ""
	}
	if strings.HasPrefix(p, "/") || driveLetter.MatchString(p) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, raw)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, raw)
		}
	}
	return strings.TrimSuffix(p, "/"), nil
}

// rotateProfile moves the live profile to <profile>.pre-restore-<date>,
// adding -2, -3, ... when that name exists. A missing profile produces an
// empty pre-restore directory.
func rotateProfile(profile, date string) (string, error) {
	base := strings.TrimRight(profile, `/\`) + ".pre-restore-" + date
	target := base
	for n := 2; ; n++ {
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			break
		} else if err != nil {
			return "", fmt.Errorf("failed to check pre-restore path: %w", err)
		}
		target = base + "-" + strconv.Itoa(n)
	}

	if _, err := os.Lstat(profile); os.IsNotExist(err) {
		if err := os.MkdirAll(target, 0755); err != nil {
			return "", fmt.Errorf("failed to create pre-restore directory: %w", err)
		}
		return target, nil
	}
	if err := os.Rename(profile, target); err != nil {
		return "", fmt.Errorf("failed to move profile aside: %w", err)
	}
	logging.Debug().Str("from", profile).Str("to", target).Msg("rotated live profile")
	return target, nil
}

// install copies the staged tree into a fresh profile directory and returns
// the relative paths of the database files it installed.
func install(staging, profile string) ([]string, error) {
	if err := os.MkdirAll(profile, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	var databases []string
	err := filepath.WalkDir(staging, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(staging, path)
		if err != nil || rel == "." {
			return err
		}
		dst := filepath.Join(profile, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(dst, 0755)
		case d.Type().IsRegular():
			if err := copyFile(path, dst); err != nil {
				return err
			}
			if sqlite.IsDatabaseFile(d.Name()) {
				databases = append(databases, rel)
			}
		default:
			logging.Debug().Str("path", rel).Msg("not installing non-regular archive entry")
		}
		return nil
	})
	return databases, err
}
