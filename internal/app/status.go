package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/config"
	"github.com/prometheas/zen-backup/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and backup health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if errors.Is(err, config.ErrNotFound) {
		fmt.Fprintln(out, "Not installed")
		fmt.Fprintln(out, "Create a settings.toml to configure backups (see --config).")
		return nil
	}
	if err != nil {
		return err
	}

	report := output.StatusReport{
		ProfilePath:    cfg.Profile.Path,
		BackupDir:      cfg.Backup.LocalPath,
		CloudPath:      cfg.Backup.CloudPath,
		DailyDays:      cfg.Retention.DailyDays,
		WeeklyDays:     cfg.Retention.WeeklyDays,
		StaleAfterDays: staleAfterDays,
	}

	if info, err := os.Stat(cfg.Backup.LocalPath); err == nil && info.IsDir() {
		entries, err := archive.List(cfg.Backup.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to read backup directory: %w", err)
		}
		report.BackupDirOK = true
		report.LatestDaily = archive.Newest(entries, archive.Daily)
		report.LatestWeekly = archive.Newest(entries, archive.Weekly)
		report.DailyBytes = archive.DirSize(filepath.Join(cfg.Backup.LocalPath, string(archive.Daily)))
		report.WeeklyBytes = archive.DirSize(filepath.Join(cfg.Backup.LocalPath, string(archive.Weekly)))
		if report.LatestDaily != nil {
			report.DailyAgeDays = report.LatestDaily.AgeDays(nowFunc().UTC())
		}
	}

	fmt.Fprint(out, output.RenderStatus(report))
	return nil
}
