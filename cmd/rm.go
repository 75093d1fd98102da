package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a question and its subtree",
	Long:  "Removes a question and all of its descendants from the tree, along with their tagged knowledge base entries.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid question id %q: %w", args[0], err)
		}

		sys, closer, err := openSystem()
		if err != nil {
			return err
		}
		defer closer()

		ids, err := sys.RemoveQuestion(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted question %d and %d descendant(s)\n", id, len(ids)-1)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
