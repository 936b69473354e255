package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf...]",
	Short: "Ingest one or more local PDF files",
	Long: `Extracts, chunks, embeds, and indexes each given PDF against the
configured vector store, the same pipeline POST /upload drives.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

type ingestResult struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	PageCount     int    `json:"page_count"`
	ChunksCreated int    `json:"chunks_created"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	services, closer, err := buildServices()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer closer()

	ctx := context.Background()
	results := make([]ingestResult, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		doc, err := services.Ingestion.Ingest(ctx, path, data)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		results = append(results, ingestResult{
			DocumentID:    doc.ID,
			Filename:      doc.Filename,
			PageCount:     doc.PageCount,
			ChunksCreated: doc.ChunkCount,
		})
	}

	if ingestJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, r := range results {
		cmd.Printf("  %s  %s  %d pages, %d chunks\n", r.DocumentID, r.Filename, r.PageCount, r.ChunksCreated)
	}
	return nil
}
