package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"qastore/internal/tree"
)

var (
	listAnswered   bool
	listUnanswered bool
	listDuplicates bool
	listJSON       bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions in the tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, _, err := openTree()
		if err != nil {
			return err
		}
		defer t.Close()

		if listDuplicates {
			return printDuplicates(t)
		}

		var nodes []tree.QuestionNode
		switch {
		case listAnswered:
			nodes, err = t.AnsweredQuestions()
		case listUnanswered:
			nodes, err = t.UnansweredQuestions()
		default:
			nodes, err = t.AllQuestions()
		}
		if err != nil {
			return err
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		}
		if len(nodes) == 0 {
			fmt.Println("No questions.")
			return nil
		}
		for _, n := range nodes {
			marker := " "
			if n.Answered() {
				marker = "A"
			}
			parent := ""
			if n.ParentID != nil {
				parent = fmt.Sprintf(" (parent %d)", *n.ParentID)
			}
			fmt.Printf("[%s] %d. %s%s\n", marker, n.ID, n.Question, parent)
		}
		return nil
	},
}

func printDuplicates(t *tree.Tree) error {
	duplicates, err := t.DuplicateQuestions()
	if err != nil {
		return err
	}
	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(duplicates)
	}
	if len(duplicates) == 0 {
		fmt.Println("No duplicate questions.")
		return nil
	}
	questions := make([]string, 0, len(duplicates))
	for q := range duplicates {
		questions = append(questions, q)
	}
	sort.Strings(questions)
	for _, q := range questions {
		fmt.Printf("%s: ids %v\n", q, duplicates[q])
	}
	return nil
}

func init() {
	listCmd.Flags().BoolVar(&listAnswered, "answered", false, "Only answered questions")
	listCmd.Flags().BoolVar(&listUnanswered, "unanswered", false, "Only unanswered questions")
	listCmd.Flags().BoolVar(&listDuplicates, "duplicates", false, "Show duplicate question texts")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
