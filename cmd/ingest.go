package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var ingestSource string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Extract QA pairs from prose and index them",
	Long:  "Reads text from a file (or stdin), extracts question/answer pairs via the completion service, and indexes each pair into the knowledge base.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text []byte
		var err error
		if len(args) == 1 {
			text, err = os.ReadFile(args[0])
		} else {
			text, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		sys, closer, err := openSystem()
		if err != nil {
			return err
		}
		defer closer()

		var metadata map[string]any
		if ingestSource != "" {
			metadata = map[string]any{"source": ingestSource}
		}

		count, err := sys.Ingest(cmd.Context(), string(text), metadata)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d QA pair(s)\n", count)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "Source label stored as metadata on each pair")
	rootCmd.AddCommand(ingestCmd)
}
