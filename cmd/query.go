package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"qastore/internal/kb"
)

var (
	queryN          int
	queryRewordings int
	queryFilters    []string
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Query the knowledge base",
	Long:  "Retrieves answers for a question, optionally fanning out over generated rewordings and filtering on metadata equality.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseFilters(queryFilters)
		if err != nil {
			return err
		}

		sys, closer, err := openSystem()
		if err != nil {
			return err
		}
		defer closer()

		results, err := sys.Query(cmd.Context(), args[0], kb.QueryOptions{
			NResults:      queryN,
			Filter:        filter,
			NumRewordings: queryRewordings,
		})
		if err != nil {
			return err
		}

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%2d. %s (similarity %.3f)\n    %s\n", i+1, r.Question, r.Similarity, r.Answer)
		}
		return nil
	},
}

// parseFilters converts repeated key=value flags into a metadata filter.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q (want key=value)", p)
		}
		filter[key] = value
	}
	return filter, nil
}

func init() {
	queryCmd.Flags().IntVarP(&queryN, "n-results", "n", 5, "Number of results to return")
	queryCmd.Flags().IntVar(&queryRewordings, "rewordings", 0, "Number of reworded query variants to fan out")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "Metadata equality filter (key=value, repeatable)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(queryCmd)
}
