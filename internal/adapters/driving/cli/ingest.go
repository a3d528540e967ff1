package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/curator/internal/core/domain"
)

var (
	ingestID      string
	ingestTitle   string
	ingestURL     string
	ingestSpace   string
	ingestDocType string
	ingestTopics  []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a markdown page",
	Long: `Chunks a markdown file and stores the chunks. Re-ingesting the same
page reconciles against the stored chunks: unchanged content is left
alone, new content is added and removed content is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var ingestRemoveCmd = &cobra.Command{
	Use:   "remove [page-id]",
	Short: "Remove an ingested page and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestRemove,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the keyword index from stored chunks",
	RunE:  runIndex,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "page identifier (defaults to the file name)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "page title (defaults to the file name)")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "canonical page location")
	ingestCmd.Flags().StringVar(&ingestSpace, "space", "", "space key for the page")
	ingestCmd.Flags().StringVar(&ingestDocType, "doc-type", "", "document type (runbook, guide, ...)")
	ingestCmd.Flags().StringSliceVar(&ingestTopics, "topic", nil, "topic labels for the page")
	ingestCmd.AddCommand(ingestRemoveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	page := &domain.Page{
		ID:        ingestID,
		Title:     ingestTitle,
		URL:       ingestURL,
		Content:   string(content),
		SpaceKey:  ingestSpace,
		DocType:   ingestDocType,
		Topics:    ingestTopics,
		UpdatedAt: time.Now().UTC(),
	}
	if page.ID == "" {
		page.ID = base
	}
	if page.Title == "" {
		page.Title = base
	}

	summary, err := ingestService.IngestPage(context.Background(), page)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", page.ID, err)
	}

	cmd.Printf("Ingested page %s\n", page.ID)
	printSummary(cmd, summary)
	return nil
}

func runIngestRemove(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	pageID := args[0]
	if err := ingestService.RemovePage(context.Background(), pageID); err != nil {
		return fmt.Errorf("removing page %s: %w", pageID, err)
	}

	cmd.Printf("Removed page %s\n", pageID)
	return nil
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if err := ingestService.RebuildIndex(context.Background()); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	cmd.Println("Keyword index rebuilt")
	return nil
}

func printSummary(cmd *cobra.Command, summary *domain.BatchSummary) {
	cmd.Printf("  Processed: %d\n", summary.Processed)
	cmd.Printf("  Succeeded: %d\n", summary.Succeeded)
	cmd.Printf("  Skipped:   %d\n", summary.Skipped)
	if summary.Failed > 0 {
		cmd.Printf("  Failed:    %d\n", summary.Failed)
	}
}
