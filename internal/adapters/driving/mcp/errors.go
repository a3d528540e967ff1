// Package mcp provides an MCP (Model Context Protocol) server adapter
// for Curator. It lets AI assistants search the knowledge base and
// report feedback on the chunks they were served.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingFeedbackService is returned when the feedback service is not provided.
var ErrMissingFeedbackService = errors.New("mcp: feedback service is required")
