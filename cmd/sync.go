package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncDirection string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile answers between the tree and the knowledge base",
	Long: "Runs the synchronizer passes. kb-to-tree fills unanswered tree nodes from tagged entries; " +
		"tree-to-kb overwrites tagged entries from answered tree nodes. Both passes are idempotent.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closer, err := openSystem()
		if err != nil {
			return err
		}
		defer closer()

		ctx := cmd.Context()
		switch syncDirection {
		case "kb-to-tree":
			return sys.SyncKBToTree(ctx)
		case "tree-to-kb":
			return sys.SyncTreeToKB(ctx)
		case "both":
			if err := sys.SyncKBToTree(ctx); err != nil {
				return err
			}
			return sys.SyncTreeToKB(ctx)
		default:
			return fmt.Errorf("invalid --direction %q (want kb-to-tree, tree-to-kb, or both)", syncDirection)
		}
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncDirection, "direction", "both", "Sync direction: kb-to-tree, tree-to-kb, or both")
	rootCmd.AddCommand(syncCmd)
}
