package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/output"
)

var backupCmd = &cobra.Command{
	Use:   "backup <daily|weekly>",
	Short: "Create a snapshot archive of the profile",
	Long: `Create a snapshot archive of the configured Zen profile.

The archive is written to <backup dir>/<kind>/ and named
zen-backup-<kind>-<YYYY-MM-DD>.tar.gz, with -2, -3, ... appended when a
backup of the same kind already exists for the day. Archives older than
the kind's retention are pruned afterwards, and the new archive is copied
to the cloud directory when one is configured.

Caches, telemetry, crash reports, credentials and cookies are never
captured.`,
	Example: `  zen-backup backup daily
  zen-backup backup weekly --debug`,
	Args: cobra.ExactArgs(1),
	RunE: runBackup,
}

func init() {
	RootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	kind, err := archive.ParseKind(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	spinner := output.NewSpinner(fmt.Sprintf("Creating %s backup", kind))
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	result, err := mgr.CreateSnapshot(cmd.Context(), kind)
	spinner.Stop()

	if result != nil {
		for _, w := range result.Warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), output.Warning("Warning: "+w))
		}
		if result.Summary != "" {
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
		}
		if result.MirrorPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Copied to cloud: %s\n", result.MirrorPath)
		}
		for _, p := range result.Pruned {
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned: %s\n", p)
		}
	}
	return err
}
