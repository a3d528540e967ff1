// Package vector provides an HTTP client for the external vector and
// graph search provider.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.VectorSearcher = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultHealthTimeout = 2 * time.Second
)

// Config holds configuration for the vector provider client.
type Config struct {
	// BaseURL is the provider endpoint (required).
	BaseURL string

	// APIKey authenticates requests when the provider requires it.
	APIKey string

	// Timeout is the per-request timeout (default: 10s).
	Timeout time.Duration
}

// Client is an HTTP client for the vector/graph search provider. The
// provider owns embeddings and the relationship graph; this client
// only exchanges ranked chunk-ID lists.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a vector provider client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vector: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

// searchRequest is the provider's query payload.
type searchRequest struct {
	Query   string `json:"query,omitempty"`
	ChunkID string `json:"chunk_id,omitempty"`
	TopK    int    `json:"top_k"`
}

// searchResponse is the provider's ranked-list payload.
type searchResponse struct {
	Hits []struct {
		ChunkID string  `json:"chunk_id"`
		Score   float64 `json:"score"`
	} `json:"hits"`
}

// Search returns the top-k semantically ranked candidates.
func (c *Client) Search(ctx context.Context, query string, k int) ([]driven.VectorHit, error) {
	return c.post(ctx, "/v1/search", searchRequest{Query: query, TopK: k})
}

// SearchGraph returns candidates ranked by graph traversal.
func (c *Client) SearchGraph(ctx context.Context, query string, k int) ([]driven.VectorHit, error) {
	return c.post(ctx, "/v1/graph-search", searchRequest{Query: query, TopK: k})
}

// Similar returns the nearest neighbours of an existing chunk.
func (c *Client) Similar(ctx context.Context, chunkID string, k int) ([]driven.VectorHit, error) {
	return c.post(ctx, "/v1/similar", searchRequest{ChunkID: chunkID, TopK: k})
}

// Healthy reports provider availability with a short-deadline probe.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug("Vector provider health check failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// post sends a JSON request and decodes the ranked-list response.
func (c *Client) post(ctx context.Context, path string, payload searchRequest) ([]driven.VectorHit, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("vector provider status %d: %w", resp.StatusCode, domain.ErrUnauthorized)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("vector provider status %d: %w", resp.StatusCode, domain.ErrRateLimited)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vector provider status %d: %s: %w",
			resp.StatusCode, string(body), domain.ErrVectorUnavailable)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	hits := make([]driven.VectorHit, len(decoded.Hits))
	for i, h := range decoded.Hits {
		hits[i] = driven.VectorHit{ChunkID: h.ChunkID, Score: h.Score}
	}
	return hits, nil
}
