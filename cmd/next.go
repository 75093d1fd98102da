package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var nextJSON bool

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Suggest the next question to ask",
	Long:  "Recomputes priorities over the whole tree and returns the highest-ranked unanswered question.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, closer, err := openSystem()
		if err != nil {
			return err
		}
		defer closer()

		suggestion, err := sys.SuggestNextQuestion(cmd.Context())
		if err != nil {
			return err
		}

		if nextJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(suggestion)
		}
		if suggestion == nil {
			fmt.Println("No unanswered questions.")
			return nil
		}
		fmt.Printf("%d. %s (priority %.2f)\n", suggestion.ID, suggestion.Question, suggestion.Priority)
		return nil
	},
}

func init() {
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(nextCmd)
}
