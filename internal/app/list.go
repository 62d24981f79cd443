package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prometheas/zen-backup/internal/archive"
	"github.com/prometheas/zen-backup/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshot archives in the backup directory",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Backup.LocalPath); err != nil {
		return fmt.Errorf("backup directory not found: %s", cfg.Backup.LocalPath)
	}

	entries, err := archive.List(cfg.Backup.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to list archives: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), output.RenderArchiveList(entries))
	return nil
}
