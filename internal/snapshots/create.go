package snapshots

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/auditlog"
	"github.com/prometheas/zen-backup/internal/logging"
)

// CreateSnapshot builds a new archive of kind under the local root, prunes
// old archives of that kind, and mirrors the result when a cloud root is
// configured. A mirror failure is returned wrapping ErrMirrorFailed alongside
// a Result describing the local archive, which is kept.
func (m *Manager) CreateSnapshot(ctx context.Context, kind archive.Kind) (*Result, error) {
	if _, err := archive.ParseKind(string(kind)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKind, err)
	}

	profile := m.settings.ProfileDir
	if info, err := os.Stat(profile); err != nil || !info.IsDir() {
		msg := "profile directory not found: " + profile
		m.audit.Append(auditlog.Error, msg)
		m.notify(ctx, "Zen Backup Error", msg)
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}

	result := &Result{}
	if m.liveness.BrowserRunning(ctx) {
		result.Warnings = append(result.Warnings, BrowserRunningWarning)
	}

	today := m.today()
	path, err := archive.NextPath(filepath.Join(m.settings.LocalRoot, string(kind)), kind, today)
	if err != nil {
		return nil, err
	}

	logging.Info().Str("kind", string(kind)).Str("archive", path).Msg("creating snapshot")
	warnings, err := m.Build(ctx, profile, path)
	result.Warnings = append(result.Warnings, warnings...)
	if err != nil {
		m.audit.Appendf(auditlog.Error, "%s backup failed: %v", kind, err)
		m.notify(ctx, "Zen Backup Failed", err.Error())
		return nil, fmt.Errorf("failed to create %s backup: %w", kind, err)
	}
	result.ArchivePath = path

	for _, w := range result.Warnings {
		m.audit.Append(auditlog.Warning, w)
	}
	if len(result.Warnings) > 0 {
		m.notify(ctx, "Zen Backup Warning", strings.Join(result.Warnings, "; "))
	}
	m.audit.Appendf(auditlog.Success, "created %s backup %s", kind, path)
	result.Summary = fmt.Sprintf("Created %s backup: %s", kind, path)

	maxAge := m.settings.RetentionDays(kind)
	pruned, err := m.PruneArchives(kind, m.settings.LocalRoot, maxAge, today)
	result.Pruned = append(result.Pruned, pruned...)
	if err != nil {
		// A failed delete does not fail the backup.
		m.audit.Appendf(auditlog.Warning, "retention failed: %v", err)
		result.Warnings = append(result.Warnings, "retention failed: "+err.Error())
	}

	if m.settings.CloudRoot == "" {
		return result, nil
	}

	mirrored, err := m.mirror(path, kind)
	if err != nil {
		m.audit.Appendf(auditlog.Error, "cloud sync failed: %v", err)
		m.notify(ctx, "Zen Backup Cloud Sync Failed", err.Error())
		return result, fmt.Errorf("%w: %v", ErrMirrorFailed, err)
	}
	result.MirrorPath = mirrored
	pruned, err = m.PruneArchives(kind, m.settings.CloudRoot, maxAge, today)
	result.Pruned = append(result.Pruned, pruned...)
	if err != nil {
		m.audit.Appendf(auditlog.Warning, "cloud retention failed: %v", err)
		result.Warnings = append(result.Warnings, "cloud retention failed: "+err.Error())
	}
	return result, nil
}

// PruneArchives deletes archives of kind under root/<kind> older than
// maxAgeDays relative to today, recording each deletion in the audit log.
func (m *Manager) PruneArchives(kind archive.Kind, root string, maxAgeDays int, today time.Time) ([]string, error) {
	deleted, err := archive.Prune(filepath.Join(root, string(kind)), archive.Policy{Kind: kind, MaxAgeDays: maxAgeDays}, today)
	for _, path := range deleted {
		m.audit.Appendf(auditlog.Success, "pruned old %s backup %s", kind, path)
	}
	return deleted, err
}

// Prune applies the configured retention to every given kind in the local
// root and, when configured, the cloud mirror.
func (m *Manager) Prune(kinds ...archive.Kind) (*Result, error) {
	if len(kinds) == 0 {
		kinds = archive.Kinds
	}
	roots := []string{m.settings.LocalRoot}
	if m.settings.CloudRoot != "" {
		roots = append(roots, m.settings.CloudRoot)
	}

	today := m.today()
	result := &Result{}
	var errs []error
	for _, kind := range kinds {
		for _, root := range roots {
			deleted, err := m.PruneArchives(kind, root, m.settings.RetentionDays(kind), today)
			result.Pruned = append(result.Pruned, deleted...)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	result.Summary = fmt.Sprintf("Pruned %d archive(s)", len(result.Pruned))
	return result, errors.Join(errs...)
}

// mirror copies the archive into CloudRoot/<kind>/ under the same name,
// writing through a temporary file so a failed copy never leaves a
// truncated archive behind.
func (m *Manager) mirror(archivePath string, kind archive.Kind) (string, error) {
	dir := filepath.Join(m.settings.CloudRoot, string(kind))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cloud directory: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(archivePath))
	tmp := dst + ".partial"
	if err := copyFile(archivePath, tmp); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to copy archive to cloud: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize cloud archive: %w", err)
	}
	logging.Debug().Str("path", dst).Msg("mirrored archive")
	return dst, nil
}

func (m *Manager) notify(ctx context.Context, title, message string) {
	if !m.settings.NotificationsEnabled {
		return
	}
	m.notifier.Notify(ctx, title, message)
}
