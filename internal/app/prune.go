package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prometheas/zen-backup/internal/archive"
)

var pruneCmd = &cobra.Command{
	Use:   "prune [daily|weekly]",
	Short: "Delete archives older than the retention policy",
	Long: `Delete archives older than the configured retention, in the backup
directory and the cloud directory. Both kinds are pruned when no kind is
given. Files not named like zen-backup archives are never touched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrune,
}

func init() {
	RootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	var kinds []archive.Kind
	if len(args) == 1 {
		kind, err := archive.ParseKind(args[0])
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	result, err := mgr.Prune(kinds...)
	for _, p := range result.Pruned {
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned: %s\n", p)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
	return err
}
