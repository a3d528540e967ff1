package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/curator/internal/chunker"
	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/ports/driving"
	"github.com/custodia-labs/curator/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns source pages into indexed chunks. Chunk IDs are
// content-derived, so re-ingesting an unchanged page keeps every ID
// stable and preserves accumulated quality state.
type IngestService struct {
	chunker      *chunker.Chunker
	chunkStore   driven.ChunkStore
	keyword      driven.SearchEngine
	scorer       *QualityScorer
	snapshotPath string
}

// IngestOption configures the ingest service.
type IngestOption func(*IngestService)

// WithIndexSnapshot persists the keyword index to path after each
// rebuild so a restart can restore it without re-tokenizing the
// corpus. Empty path disables snapshotting.
func WithIndexSnapshot(path string) IngestOption {
	return func(s *IngestService) { s.snapshotPath = path }
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(
	ch *chunker.Chunker,
	chunkStore driven.ChunkStore,
	keyword driven.SearchEngine,
	scorer *QualityScorer,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		chunker:    ch,
		chunkStore: chunkStore,
		keyword:    keyword,
		scorer:     scorer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestPage chunks a page and reconciles its stored chunks: unchanged
// chunks are kept untouched, new ones get an initial quality score,
// and chunks no longer produced are removed along with their derived
// state. The keyword index is rebuilt afterwards.
func (s *IngestService) IngestPage(ctx context.Context, page *domain.Page) (*domain.BatchSummary, error) {
	if page == nil || page.ID == "" {
		return nil, fmt.Errorf("page id required: %w", domain.ErrInvalidInput)
	}

	logger.Section("Page Ingestion")
	logger.Debug("Ingesting page %s (%s)", page.ID, page.Title)
	started := time.Now()

	chunks, err := s.chunker.Chunk(page)
	if err != nil {
		return nil, fmt.Errorf("chunk page: %w", err)
	}

	existing, err := s.chunkStore.ListByPage(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list existing chunks: %w", err)
	}
	existingIDs := make(map[string]bool, len(existing))
	for i := range existing {
		existingIDs[existing[i].ID] = true
	}

	summary := &domain.BatchSummary{Job: "ingest"}
	newIDs := make(map[string]bool, len(chunks))
	var toSave []domain.Chunk

	for i := range chunks {
		newIDs[chunks[i].ID] = true
		summary.Processed++
		if existingIDs[chunks[i].ID] {
			summary.Skipped++
			continue
		}
		toSave = append(toSave, chunks[i])
	}

	if len(toSave) > 0 {
		if err := s.chunkStore.SaveChunks(ctx, toSave); err != nil {
			return nil, fmt.Errorf("save chunks: %w", err)
		}
		for i := range toSave {
			if err := s.scorer.EnsureScore(ctx, toSave[i].ID); err != nil {
				logger.Warn("Initial score failed for %s: %v", toSave[i].ID, err)
				summary.Failed++
				continue
			}
			summary.Succeeded++
		}
	}

	// Chunks the page no longer produces are gone from the source.
	for i := range existing {
		if newIDs[existing[i].ID] {
			continue
		}
		if err := s.removeChunk(ctx, existing[i].ID); err != nil {
			logger.Warn("Removal failed for %s: %v", existing[i].ID, err)
			summary.Failed++
		}
	}

	if err := s.RebuildIndex(ctx); err != nil {
		return nil, err
	}

	summary.Took = time.Since(started)
	logger.Info("Ingested page %s: %d chunks (%d new, %d unchanged)",
		page.ID, summary.Processed, summary.Succeeded, summary.Skipped)
	return summary, nil
}

// RemovePage deletes all chunks for a page and rebuilds the index.
func (s *IngestService) RemovePage(ctx context.Context, pageID string) error {
	if pageID == "" {
		return fmt.Errorf("page id required: %w", domain.ErrInvalidInput)
	}

	chunks, err := s.chunkStore.ListByPage(ctx, pageID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	for i := range chunks {
		if err := s.scorer.Delete(ctx, chunks[i].ID); err != nil {
			logger.Warn("Quality cleanup failed for %s: %v", chunks[i].ID, err)
		}
	}
	if err := s.chunkStore.DeleteByPage(ctx, pageID); err != nil {
		return fmt.Errorf("delete page chunks: %w", err)
	}

	return s.RebuildIndex(ctx)
}

// WarmIndex primes the keyword index on startup. With a snapshot
// configured it restores the saved corpus; a missing or unreadable
// snapshot falls back to a full rebuild, which writes a fresh one.
func (s *IngestService) WarmIndex(ctx context.Context) error {
	if s.snapshotPath != "" {
		if err := s.keyword.Load(s.snapshotPath); err == nil {
			logger.Debug("Keyword index restored from %s", s.snapshotPath)
			return nil
		} else if !os.IsNotExist(err) {
			logger.Warn("Keyword index snapshot unreadable, rebuilding: %v", err)
		}
	}
	return s.RebuildIndex(ctx)
}

// RebuildIndex replaces the keyword index with the full stored corpus.
func (s *IngestService) RebuildIndex(ctx context.Context) error {
	chunks, err := s.chunkStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	metadata := make([]map[string]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
		contents[i] = chunks[i].Content
		metadata[i] = map[string]string{
			"page_id":   chunks[i].PageID,
			"space_key": chunks[i].SpaceKey,
		}
	}

	if err := s.keyword.Build(ctx, ids, contents, metadata); err != nil {
		return fmt.Errorf("build keyword index: %w", err)
	}
	logger.Debug("Keyword index rebuilt with %d chunks", len(ids))

	if s.snapshotPath != "" {
		if err := s.keyword.Save(s.snapshotPath); err != nil {
			logger.Warn("Keyword index snapshot write failed: %v", err)
		}
	}
	return nil
}

// removeChunk deletes a chunk and its quality record.
func (s *IngestService) removeChunk(ctx context.Context, chunkID string) error {
	if err := s.scorer.Delete(ctx, chunkID); err != nil {
		return err
	}
	return s.chunkStore.DeleteChunk(ctx, chunkID)
}
