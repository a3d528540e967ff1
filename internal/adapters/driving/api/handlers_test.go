package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/services"
)

// --- Mock implementations ---

// mockSearch implements driving.SearchService for testing.
type mockSearch struct {
	response *domain.SearchResponse
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearch) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.response != nil {
		return m.response, nil
	}
	return &domain.SearchResponse{Query: query}, nil
}

// mockFeedback implements driving.FeedbackService for testing.
type mockFeedback struct {
	score        *domain.QualityScore
	submitErr    error
	repromoteErr error
}

func (m *mockFeedback) SubmitFeedback(_ context.Context, chunkID, _ string, _ domain.FeedbackType, _ string) (*domain.QualityScore, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if m.score != nil {
		return m.score, nil
	}
	return &domain.QualityScore{ChunkID: chunkID, Score: 72, Status: domain.StatusActive}, nil
}

func (m *mockFeedback) RepromoteChunk(_ context.Context, _ string) error {
	return m.repromoteErr
}

// mockConflicts implements driven.ConflictStore for testing.
type mockConflicts struct {
	open      []domain.Conflict
	listErr   error
	updateErr error
}

func (m *mockConflicts) Save(_ context.Context, _ domain.Conflict) error { return nil }

func (m *mockConflicts) Get(_ context.Context, _ string) (*domain.Conflict, error) {
	return nil, domain.ErrNotFound
}

func (m *mockConflicts) FindOpenPair(_ context.Context, _, _ string) (*domain.Conflict, error) {
	return nil, domain.ErrNotFound
}

func (m *mockConflicts) ListOpen(_ context.Context) ([]domain.Conflict, error) {
	return m.open, m.listErr
}

func (m *mockConflicts) UpdateStatus(_ context.Context, _ string, _ domain.ConflictStatus) error {
	return m.updateErr
}

// --- Helpers ---

type serverFixture struct {
	server    *Server
	search    *mockSearch
	feedback  *mockFeedback
	conflicts *mockConflicts
}

func newServerFixture(limiter *services.RateLimiter) *serverFixture {
	f := &serverFixture{
		search:    &mockSearch{},
		feedback:  &mockFeedback{},
		conflicts: &mockConflicts{},
	}
	f.server = NewServer(f.search, f.feedback, nil, f.conflicts, limiter)
	return f
}

func doJSON(t *testing.T, server *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

// --- Tests ---

func TestHandleHealth(t *testing.T) {
	f := newServerFixture(nil)

	rec := doJSON(t, f.server, http.MethodGet, "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandleSearch_Validation(t *testing.T) {
	f := newServerFixture(nil)

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/search", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "query is required", errorMessage(t, rec))

	for _, topK := range []int{0, -1, 101} {
		rec = doJSON(t, f.server, http.MethodPost, "/api/v1/search", map[string]any{
			"query": "x", "top_k": topK,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "top_k=%d", topK)
		assert.Equal(t, "top_k must be between 1 and 100", errorMessage(t, rec))
	}

	rec = doJSON(t, f.server, http.MethodPost, "/api/v1/search", map[string]any{
		"query": "x", "updated_after": "yesterday",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "updated_after must be an RFC3339 timestamp or a YYYY-MM-DD date", errorMessage(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	f := newServerFixture(nil)
	f.search.response = &domain.SearchResponse{
		Query: "timeout",
		Results: []domain.SearchResult{
			{
				Chunk: domain.Chunk{
					ID: "c1", PageID: "p1", PageTitle: "API Guide",
					URL:     "https://wiki.example.com/p1",
					Content: "The timeout is 30s.", Type: domain.ChunkTypeText,
				},
				Score:        0.9,
				FusedScore:   0.8,
				QualityScore: 85,
				SourceRanks:  map[string]int{"keyword": 0},
			},
		},
		TotalFound: 1,
		Degraded:   true,
	}

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/search", map[string]any{"query": "timeout"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body searchResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "c1", body.Results[0].ChunkID)
	assert.Equal(t, "API Guide", body.Results[0].PageTitle)
	assert.Equal(t, "https://wiki.example.com/p1", body.Results[0].URL)
	assert.Equal(t, 85.0, body.Results[0].QualityScore)
	assert.Equal(t, 1, body.TotalFound)
	assert.True(t, body.Degraded)

	// Content and boosting default to on when the payload omits them.
	assert.True(t, f.search.lastOpts.IncludeContent)
	assert.True(t, f.search.lastOpts.ApplyQualityBoost)
}

func TestHandleSearch_OptionFlags(t *testing.T) {
	f := newServerFixture(nil)

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/search", map[string]any{
		"query":           "timeout",
		"include_content": false,
		"quality_boost":   false,
		"space_key":       "OPS",
		"topics":          []string{"deploy"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, f.search.lastOpts.IncludeContent)
	assert.False(t, f.search.lastOpts.ApplyQualityBoost)
	assert.Equal(t, "OPS", f.search.lastOpts.Filters.SpaceKey)
	assert.Equal(t, []string{"deploy"}, f.search.lastOpts.Filters.Topics)
}

func TestHandleSearch_TopKDefaultAndDateFilter(t *testing.T) {
	f := newServerFixture(nil)

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/search", map[string]any{
		"query":         "timeout",
		"updated_after": "2026-08-01",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Omitted top_k falls back to the default rather than zero.
	assert.Equal(t, domain.DefaultTopK, f.search.lastOpts.TopK)
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, f.search.lastOpts.Filters.UpdatedAfter.Equal(want))

	rec = doJSON(t, f.server, http.MethodPost, "/api/v1/search", map[string]any{
		"query":         "timeout",
		"top_k":         25,
		"updated_after": "2026-08-01T09:30:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, f.search.lastOpts.TopK)
	want = time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	assert.True(t, f.search.lastOpts.Filters.UpdatedAfter.Equal(want))
}

func TestHandleFeedback_Validation(t *testing.T) {
	f := newServerFixture(nil)

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/feedback", map[string]any{
		"feedback_type": "helpful",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "chunk_id is required", errorMessage(t, rec))

	rec = doJSON(t, f.server, http.MethodPost, "/api/v1/feedback", map[string]any{
		"chunk_id": "c1", "feedback_type": "amazing",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "feedback_type must be one of: helpful, outdated, incorrect, confusing", errorMessage(t, rec))
}

func TestHandleFeedback_Success(t *testing.T) {
	f := newServerFixture(nil)
	f.feedback.score = &domain.QualityScore{ChunkID: "c1", Score: 55, Status: domain.StatusDeprecated}

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/feedback", map[string]any{
		"chunk_id": "c1", "user_id": "u1", "feedback_type": "outdated",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "c1", body["chunk_id"])
	assert.Equal(t, 55.0, body["score"])
	assert.Equal(t, "deprecated", body["status"])
}

func TestHandleFeedback_NotFound(t *testing.T) {
	f := newServerFixture(nil)
	f.feedback.submitErr = domain.ErrNotFound

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/feedback", map[string]any{
		"chunk_id": "missing", "feedback_type": "helpful",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "chunk not found", errorMessage(t, rec))
}

func TestHandleRepromote(t *testing.T) {
	f := newServerFixture(nil)

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/chunks/c1/repromote", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active"`)

	f.feedback.repromoteErr = domain.ErrInvalidTransition
	rec = doJSON(t, f.server, http.MethodPost, "/api/v1/chunks/c1/repromote", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "chunk is not deprecated", errorMessage(t, rec))

	f.feedback.repromoteErr = domain.ErrNotFound
	rec = doJSON(t, f.server, http.MethodPost, "/api/v1/chunks/missing/repromote", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListConflicts(t *testing.T) {
	f := newServerFixture(nil)
	f.conflicts.open = []domain.Conflict{
		{ID: "x", ChunkIDA: "a", ChunkIDB: "b", Status: domain.ConflictOpen},
	}

	rec := doJSON(t, f.server, http.MethodGet, "/api/v1/conflicts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"x"`)
}

func TestHandleResolveConflict(t *testing.T) {
	f := newServerFixture(nil)

	rec := doJSON(t, f.server, http.MethodPost, "/api/v1/conflicts/x/resolve", map[string]any{
		"status": "ignored",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status must be dismissed or resolved", errorMessage(t, rec))

	rec = doJSON(t, f.server, http.MethodPost, "/api/v1/conflicts/x/resolve", map[string]any{
		"status": "resolved",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resolved"`)

	f.conflicts.updateErr = domain.ErrNotFound
	rec = doJSON(t, f.server, http.MethodPost, "/api/v1/conflicts/missing/resolve", map[string]any{
		"status": "dismissed",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit_PerClient(t *testing.T) {
	f := newServerFixture(services.NewRateLimiter(1, 1))

	send := func(clientID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conflicts", nil)
		req.Header.Set(clientIDHeader, clientID)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))

	// A different client has its own budget.
	assert.Equal(t, http.StatusOK, send("bob"))

	// Health is outside the limited group.
	rec := doJSON(t, f.server, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
