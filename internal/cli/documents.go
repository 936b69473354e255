package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Inspect ingested documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every ingested document",
	RunE:  runDocumentsList,
}

func init() {
	documentsListCmd.Flags().BoolVar(&documentsJSON, "json", false, "output results as JSON")
	documentsCmd.AddCommand(documentsListCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	services, closer, err := buildServices()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer closer()

	docs, err := services.Ingestion.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if documentsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}
	for _, d := range docs {
		cmd.Printf("  %s  %s  %d chunks\n", d.ID, d.Filename, d.ChunkCount)
	}
	return nil
}
