package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// searchRequest is the POST /api/v1/search payload.
type searchRequest struct {
	Query          string   `json:"query"`
	TopK           *int     `json:"top_k,omitempty"`
	SpaceKey       string   `json:"space_key,omitempty"`
	DocType        string   `json:"doc_type,omitempty"`
	Topics         []string `json:"topics,omitempty"`
	UpdatedAfter   string   `json:"updated_after,omitempty"`
	IncludeContent *bool    `json:"include_content,omitempty"`
	QualityBoost   *bool    `json:"quality_boost,omitempty"`
}

// searchResultBody is one hit in the response.
type searchResultBody struct {
	ChunkID       string         `json:"chunk_id"`
	PageID        string         `json:"page_id"`
	PageTitle     string         `json:"page_title,omitempty"`
	URL           string         `json:"url,omitempty"`
	Content       string         `json:"content,omitempty"`
	Type          string         `json:"type"`
	ParentHeaders []string       `json:"parent_headers,omitempty"`
	SpaceKey      string         `json:"space_key,omitempty"`
	Score         float64        `json:"score"`
	FusedScore    float64        `json:"fused_score"`
	QualityScore  float64        `json:"quality_score"`
	SourceRanks   map[string]int `json:"source_ranks,omitempty"`
}

// searchResponseBody is the POST /api/v1/search response.
type searchResponseBody struct {
	Query      string             `json:"query"`
	Results    []searchResultBody `json:"results"`
	TotalFound int                `json:"total_found"`
	TookMs     int64              `json:"took_ms"`
	Degraded   bool               `json:"degraded"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	topK := domain.DefaultTopK
	if req.TopK != nil {
		if *req.TopK < 1 || *req.TopK > domain.MaxTopK {
			jsonError(w, "top_k must be between 1 and 100", http.StatusBadRequest)
			return
		}
		topK = *req.TopK
	}

	opts := domain.SearchOptions{
		TopK:              topK,
		IncludeContent:    true,
		ApplyQualityBoost: true,
		Filters: domain.SearchFilters{
			SpaceKey: req.SpaceKey,
			DocType:  req.DocType,
			Topics:   req.Topics,
		},
	}
	if req.IncludeContent != nil {
		opts.IncludeContent = *req.IncludeContent
	}
	if req.QualityBoost != nil {
		opts.ApplyQualityBoost = *req.QualityBoost
	}
	if req.UpdatedAfter != "" {
		t, err := parseUpdatedAfter(req.UpdatedAfter)
		if err != nil {
			jsonError(w, "updated_after must be an RFC3339 timestamp or a YYYY-MM-DD date", http.StatusBadRequest)
			return
		}
		opts.Filters.UpdatedAfter = t
	}

	resp, err := s.search.Search(r.Context(), req.Query, opts)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}

	body := searchResponseBody{
		Query:      resp.Query,
		Results:    make([]searchResultBody, 0, len(resp.Results)),
		TotalFound: resp.TotalFound,
		TookMs:     resp.TookMs,
		Degraded:   resp.Degraded,
	}
	for i := range resp.Results {
		res := &resp.Results[i]
		body.Results = append(body.Results, searchResultBody{
			ChunkID:       res.Chunk.ID,
			PageID:        res.Chunk.PageID,
			PageTitle:     res.Chunk.PageTitle,
			URL:           res.Chunk.URL,
			Content:       res.Chunk.Content,
			Type:          string(res.Chunk.Type),
			ParentHeaders: res.Chunk.ParentHeaders,
			SpaceKey:      res.Chunk.SpaceKey,
			Score:         res.Score,
			FusedScore:    res.FusedScore,
			QualityScore:  res.QualityScore,
			SourceRanks:   res.SourceRanks,
		})
	}

	writeJSON(w, http.StatusOK, body)
}

// parseUpdatedAfter accepts a full RFC3339 timestamp or a bare date,
// which is read as midnight UTC.
func parseUpdatedAfter(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// feedbackRequest is the POST /api/v1/feedback payload.
type feedbackRequest struct {
	ChunkID      string `json:"chunk_id"`
	UserID       string `json:"user_id"`
	FeedbackType string `json:"feedback_type"`
	Comment      string `json:"comment,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ChunkID == "" {
		jsonError(w, "chunk_id is required", http.StatusBadRequest)
		return
	}
	ft := domain.FeedbackType(req.FeedbackType)
	if !ft.IsValid() {
		jsonError(w, "feedback_type must be one of: helpful, outdated, incorrect, confusing", http.StatusBadRequest)
		return
	}

	score, err := s.feedback.SubmitFeedback(r.Context(), req.ChunkID, req.UserID, ft, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			jsonError(w, "chunk not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidInput):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			jsonError(w, "feedback failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chunk_id": score.ChunkID,
		"score":    score.Score,
		"status":   score.Status,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := s.conflicts.ListOpen(r.Context())
	if err != nil {
		jsonError(w, "listing conflicts failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}

// resolveRequest is the conflict resolution payload.
type resolveRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	conflictID := chi.URLParam(r, "conflictID")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	status := domain.ConflictStatus(req.Status)
	if status != domain.ConflictDismissed && status != domain.ConflictResolved {
		jsonError(w, "status must be dismissed or resolved", http.StatusBadRequest)
		return
	}

	if err := s.conflicts.UpdateStatus(r.Context(), conflictID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			jsonError(w, "conflict not found", http.StatusNotFound)
			return
		}
		jsonError(w, "updating conflict failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": conflictID, "status": req.Status})
}

func (s *Server) handleRepromote(w http.ResponseWriter, r *http.Request) {
	chunkID := chi.URLParam(r, "chunkID")

	if err := s.feedback.RepromoteChunk(r.Context(), chunkID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			jsonError(w, "chunk not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidTransition):
			jsonError(w, "chunk is not deprecated", http.StatusConflict)
		default:
			jsonError(w, "repromotion failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"chunk_id": chunkID, "status": string(domain.StatusActive)})
}
