package mcp

import (
	"github.com/custodia-labs/curator/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides quality-boosted hybrid search.
	Search driving.SearchService

	// Feedback accepts user signals on served chunks.
	Feedback driving.FeedbackService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Feedback == nil {
		return ErrMissingFeedbackService
	}
	return nil
}
