package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var loadJSON bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load new books from the ingestion folder",
	Long: `Reads every eligible file in the ingestion folder that is not stored
yet, chunks it and writes the chunks to the vector store. Files already
stored under the same name are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Ingestor.Ingest(cmd.Context())
		if err != nil {
			return err
		}
		if loadJSON {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okText("Loaded:"), listOrNone(summary.Loaded))
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", warnText("Skipped:"), listOrNone(summary.Skipped))
		fmt.Fprintf(cmd.OutOrStdout(), "Chunks created: %d, inserted: %d\n", summary.ChunksCreated, summary.ChunksInserted)
		return nil
	},
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func init() {
	loadCmd.Flags().BoolVar(&loadJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(loadCmd)
}
