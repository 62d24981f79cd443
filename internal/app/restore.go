package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prometheas/zen-backup/internal/output"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore the profile from a snapshot archive",
	Long: `Restore the configured Zen profile from a snapshot archive.

The archive may be given as a path, or by file name, in which case it is
looked up in the backup directory and then its daily/ and weekly/
subdirectories.

Before anything is written, the current profile is renamed to
<profile>.pre-restore-<date>. That copy is never removed automatically.
The browser must be closed.`,
	Example: `  zen-backup restore zen-backup-daily-2026-01-16.tar.gz
  zen-backup restore ~/zen-backups/weekly/zen-backup-weekly-2026-01-11.tar.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	spinner := output.NewSpinner("Restoring profile")
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	result, err := mgr.RestoreSnapshot(cmd.Context(), args[0])
	spinner.Stop()
	if err != nil {
		if result != nil && result.PreRestorePath != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), output.Failure("Previous profile preserved at: "+result.PreRestorePath))
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), output.Success(result.Summary))
	return nil
}
