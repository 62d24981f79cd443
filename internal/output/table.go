// Package output renders zen-backup results for the terminal.
//
// Renderers return strings so commands decide where they go; colors are
// applied only when stdout is a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/prometheas/zen-backup/internal/archive"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// Success, Warning and Failure color a status line.
func Success(text string) string { return colorize(colorGreen, text) }
func Warning(text string) string { return colorize(colorYellow, text) }
func Failure(text string) string { return colorize(colorRed, text) }

// FormatSize renders a byte count, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// RenderArchiveList renders archives grouped by kind, oldest first, in the
// order List returns them.
func RenderArchiveList(entries []archive.Entry) string {
	if len(entries) == 0 {
		return "No backups found (empty backup directory).\n"
	}

	var sb strings.Builder
	for _, kind := range archive.Kinds {
		sb.WriteString(string(kind) + ":\n")
		for _, e := range entries {
			if e.Kind != kind {
				continue
			}
			fmt.Fprintf(&sb, "  %s (%s)\n", e.Name, FormatSize(e.SizeBytes))
		}
	}
	return sb.String()
}

// StatusReport is everything the status command shows.
type StatusReport struct {
	ProfilePath string
	BackupDir   string
	CloudPath   string
	DailyDays   int
	WeeklyDays  int

	// BackupDirOK is false when the backup directory does not exist.
	BackupDirOK  bool
	LatestDaily  *archive.Entry
	LatestWeekly *archive.Entry
	DailyBytes   int64
	WeeklyBytes  int64

	// DailyAgeDays is the age of LatestDaily; beyond StaleAfterDays the
	// report warns.
	DailyAgeDays   int
	StaleAfterDays int
}

// RenderStatus renders a StatusReport.
func RenderStatus(r StatusReport) string {
	var sb strings.Builder
	sb.WriteString("Zen Profile Backup Status\n")
	fmt.Fprintf(&sb, "Profile path: %s\n", r.ProfilePath)
	fmt.Fprintf(&sb, "Backup directory: %s\n", r.BackupDir)
	if r.CloudPath != "" {
		fmt.Fprintf(&sb, "Cloud sync: enabled (%s)\n", r.CloudPath)
	} else {
		sb.WriteString("Cloud sync: local only\n")
	}
	fmt.Fprintf(&sb, "Retention: daily %d days, weekly %d days\n", r.DailyDays, r.WeeklyDays)

	if !r.BackupDirOK {
		sb.WriteString(Warning("Backup directory not found. Run a backup or check configuration.") + "\n")
		return sb.String()
	}

	sb.WriteString(latestLine(archive.Daily, r.LatestDaily))
	sb.WriteString(latestLine(archive.Weekly, r.LatestWeekly))
	fmt.Fprintf(&sb, "Disk usage total: %s\n", FormatSize(r.DailyBytes+r.WeeklyBytes))
	fmt.Fprintf(&sb, "Disk usage daily: %s\n", FormatSize(r.DailyBytes))
	fmt.Fprintf(&sb, "Disk usage weekly: %s\n", FormatSize(r.WeeklyBytes))

	switch {
	case r.LatestDaily == nil && r.LatestWeekly == nil:
		sb.WriteString("No backups yet. Run a backup.\n")
	case r.LatestDaily == nil:
	case r.DailyAgeDays > r.StaleAfterDays:
		sb.WriteString(Warning("Warning: latest daily backup is stale.") + "\n")
	default:
		sb.WriteString(Success("Health: recent daily backup exists.") + "\n")
	}
	return sb.String()
}

func latestLine(kind archive.Kind, e *archive.Entry) string {
	if e == nil {
		return fmt.Sprintf("No %s backups yet\n", kind)
	}
	return fmt.Sprintf("Latest %s: %s (%s)\n", kind, e.Name, FormatSize(e.SizeBytes))
}
