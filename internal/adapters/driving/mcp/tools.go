package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// SearchInput is the input schema for the search_knowledge tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the question or keywords to search the knowledge base for"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 10, max 100)"`
	SpaceKey string   `json:"space_key,omitempty" jsonschema:"restrict results to one space"`
	DocType  string   `json:"doc_type,omitempty" jsonschema:"restrict results to one document type"`
	Topics   []string `json:"topics,omitempty" jsonschema:"require at least one matching topic label"`
}

// SearchOutput is the output schema for the search_knowledge tool.
type SearchOutput struct {
	Results  []SearchResultOutput `json:"results"`
	Count    int                  `json:"count"`
	Degraded bool                 `json:"degraded"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID       string   `json:"chunk_id"`
	PageID        string   `json:"page_id"`
	PageTitle     string   `json:"page_title,omitempty"`
	URL           string   `json:"url,omitempty"`
	Content       string   `json:"content"`
	ParentHeaders []string `json:"parent_headers,omitempty"`
	Score         float64  `json:"score"`
	QualityScore  float64  `json:"quality_score"`
}

// FeedbackInput is the input schema for the submit_feedback tool.
type FeedbackInput struct {
	ChunkID      string `json:"chunk_id" jsonschema:"the chunk the feedback applies to"`
	FeedbackType string `json:"feedback_type" jsonschema:"one of: helpful, outdated, incorrect, confusing"`
	UserID       string `json:"user_id,omitempty" jsonschema:"identifier of the user giving feedback"`
	Comment      string `json:"comment,omitempty" jsonschema:"optional free-text note"`
}

// FeedbackOutput is the output schema for the submit_feedback tool.
type FeedbackOutput struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the knowledge base with hybrid keyword, semantic and graph retrieval",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "submit_feedback",
		Description: "Report whether a previously returned chunk was helpful, outdated, incorrect or confusing",
	}, s.handleFeedback)
}

// handleSearch handles the search_knowledge tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		TopK:              input.TopK,
		IncludeContent:    true,
		ApplyQualityBoost: true,
		Filters: domain.SearchFilters{
			SpaceKey: input.SpaceKey,
			DocType:  input.DocType,
			Topics:   input.Topics,
		},
	}

	resp, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, len(resp.Results)),
		Count:    len(resp.Results),
		Degraded: resp.Degraded,
	}

	for i := range resp.Results {
		res := &resp.Results[i]
		output.Results[i] = SearchResultOutput{
			ChunkID:       res.Chunk.ID,
			PageID:        res.Chunk.PageID,
			PageTitle:     res.Chunk.PageTitle,
			URL:           res.Chunk.URL,
			Content:       res.Chunk.Content,
			ParentHeaders: res.Chunk.ParentHeaders,
			Score:         res.Score,
			QualityScore:  res.QualityScore,
		}
	}

	return nil, output, nil
}

// handleFeedback handles the submit_feedback tool invocation.
func (s *Server) handleFeedback(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FeedbackInput,
) (*mcp.CallToolResult, FeedbackOutput, error) {
	ft := domain.FeedbackType(input.FeedbackType)
	if !ft.IsValid() {
		return nil, FeedbackOutput{}, domain.ErrInvalidInput
	}

	score, err := s.ports.Feedback.SubmitFeedback(ctx, input.ChunkID, input.UserID, ft, input.Comment)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}

	return nil, FeedbackOutput{
		ChunkID: score.ChunkID,
		Score:   score.Score,
		Status:  score.Status.String(),
	}, nil
}
