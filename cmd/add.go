package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	addParent int64
	addJSON   bool
)

var addCmd = &cobra.Command{
	Use:   "add <question>",
	Short: "Add a question to the tree",
	Long:  "Records a question in the tree (optionally under a parent) and mirrors it into the knowledge base as a tagged entry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closer, err := openSystem()
		if err != nil {
			return err
		}
		defer closer()

		var parentID *int64
		if addParent > 0 {
			parentID = &addParent
		}

		id, err := sys.AddQuestion(cmd.Context(), args[0], parentID)
		if err != nil {
			return err
		}

		if addJSON {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(struct {
				ID int64 `json:"id"`
			}{id})
		}
		fmt.Printf("Added question %d\n", id)
		return nil
	},
}

func init() {
	addCmd.Flags().Int64Var(&addParent, "parent", 0, "Parent question id (0 = root)")
	addCmd.Flags().BoolVar(&addJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(addCmd)
}
