package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/curator/internal/core/domain"
)

var (
	searchTopK     int
	searchJSON     bool
	searchSpace    string
	searchDocType  string
	searchTopics   []string
	searchNoBoost  bool
	searchNoBodies bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Performs hybrid search across the knowledge base.
Combines keyword (BM25), semantic and graph retrieval, fuses the ranked
lists and boosts results by their quality score.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchSpace, "space", "", "restrict results to one space")
	searchCmd.Flags().StringVar(&searchDocType, "doc-type", "", "restrict results to one document type")
	searchCmd.Flags().StringSliceVar(&searchTopics, "topic", nil, "require at least one matching topic label")
	searchCmd.Flags().BoolVar(&searchNoBoost, "no-boost", false, "rank by fused relevance only, ignoring quality")
	searchCmd.Flags().BoolVar(&searchNoBodies, "no-content", false, "omit chunk bodies from the output")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		TopK:              searchTopK,
		IncludeContent:    !searchNoBodies,
		ApplyQualityBoost: !searchNoBoost,
		Filters: domain.SearchFilters{
			SpaceKey: searchSpace,
			DocType:  searchDocType,
			Topics:   searchTopics,
		},
	}

	resp, err := searchService.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp.Degraded {
		cmd.Println("Warning: some search backends were unavailable; results may be incomplete.")
		cmd.Println()
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range resp.Results {
		res := &resp.Results[i]

		title := res.Chunk.PageTitle
		if breadcrumb := strings.Join(res.Chunk.ParentHeaders, " > "); breadcrumb != "" {
			if title != "" {
				title += ": "
			}
			title += breadcrumb
		}
		if title == "" {
			title = res.Chunk.ID
		}

		cmd.Printf("  [%d] %s (%.4f, quality %.0f)\n", i+1, title, res.Score, res.QualityScore)
		cmd.Printf("      Page: %s\n", res.Chunk.PageID)
		if res.Chunk.URL != "" {
			cmd.Printf("      URL:  %s\n", res.Chunk.URL)
		}
		if res.Chunk.Content != "" {
			cmd.Printf("      %s\n", snippet(res.Chunk.Content, 160))
		}
		cmd.Println()
	}

	return nil
}

// snippet returns the first line of content, truncated to max runes.
func snippet(content string, max int) string {
	line := content
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	runes := []rune(line)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return line
}
