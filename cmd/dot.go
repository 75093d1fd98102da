package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qastore/internal/rank"
)

var dotOutput string

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Render the question tree as Graphviz DOT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, _, err := openTree()
		if err != nil {
			return err
		}
		defer t.Close()

		nodes, err := t.AllQuestions()
		if err != nil {
			return err
		}
		forest := rank.NewForest(nodes)
		out := forest.DOT(rank.Scores(forest))

		if dotOutput != "" {
			if err := os.WriteFile(dotOutput, []byte(out), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", dotOutput, err)
			}
			fmt.Printf("Wrote %s\n", dotOutput)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	dotCmd.Flags().StringVarP(&dotOutput, "output", "o", "", "Write DOT to a file instead of stdout")
	rootCmd.AddCommand(dotCmd)
}
