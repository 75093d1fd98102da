package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var answerCmd = &cobra.Command{
	Use:   "answer <id> <answer...>",
	Short: "Answer a question",
	Long:  "Sets (or overwrites) the answer on a tree question and pushes it into the tagged knowledge base entry.",
	Args:  cobra.MinimumNArgs(2),
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

		answer := strings.Join(args[1:], " ")
		if err := sys.AnswerQuestion(cmd.Context(), id, answer); err != nil {
			return err
		}
		fmt.Printf("Answered question %d\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(answerCmd)
}
