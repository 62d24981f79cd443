package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/prometheas/zen-backup/internal/logging"
)

// DefaultLogFile is used when --log-file is given without a value.
const DefaultLogFile = "zen-backup-debug.log"

var (
	configPath string
	debugFlag  bool
	logFile    string

	// Version is overridden at build time with -ldflags "-X".
	Version = "dev"

	logCloser io.Closer

	// RootCmd is the root command for zen-backup
	RootCmd = &cobra.Command{
		Use:   "zen-backup",
		Short: "Back up and restore Zen browser profiles",
		Long: `zen-backup creates daily and weekly snapshot archives of a Zen browser
profile, keeps them for a configured number of days, and restores them with
a pre-restore safety copy of the profile being replaced.

SQLite databases are copied with a hot backup and verified, so backups are
safe to take while the browser is open. Restores require the browser to be
closed.

Examples:
  # Take a daily snapshot
  zen-backup backup daily

  # Show available archives
  zen-backup list

  # Restore an archive by name
  zen-backup restore zen-backup-daily-2026-01-16.tar.gz

  # Check backup health
  zen-backup status`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default: ~/.config/zen-profile-backup/settings.toml)")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "print diagnostic logs to stderr")
	RootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write diagnostic logs as JSON to a file")
	RootCmd.PersistentFlags().Lookup("log-file").NoOptDefVal = DefaultLogFile

	RootCmd.Version = Version
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	defer closeLog()
	return RootCmd.Execute()
}

func setupLogging(cmd *cobra.Command, args []string) error {
	closeLog()

	cfg := logging.Config{Level: "disabled"}
	if debugFlag {
		cfg.Level = "debug"
		cfg.Console = cmd.ErrOrStderr()
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logCloser = f
		cfg.Level = "debug"
		cfg.File = f
	}
	logging.Init(cfg)
	logging.Debug().Str("command", cmd.CommandPath()).Strs("args", args).Msg("starting")
	return nil
}

func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}
