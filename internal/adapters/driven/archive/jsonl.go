// Package archive provides a file-based hard-archive exporter.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.ArchiveWriter = (*Writer)(nil)

// Writer exports hard-archived chunks as timestamped JSONL files, one
// record per line. Files are written atomically via a temp file so a
// crashed export never leaves a partial artefact.
type Writer struct {
	dir string
}

// NewWriter creates an archive writer rooted at dir. If dir is empty,
// defaults to ~/.curator/archive.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".curator", "archive")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	return &Writer{dir: dir}, nil
}

// archiveRecord is the on-disk representation of one archived chunk.
type archiveRecord struct {
	ChunkID       string    `json:"chunk_id"`
	PageID        string    `json:"page_id"`
	Content       string    `json:"content"`
	Type          string    `json:"type"`
	ParentHeaders []string  `json:"parent_headers,omitempty"`
	SpaceKey      string    `json:"space_key,omitempty"`
	Score         float64   `json:"score"`
	FeedbackCount int       `json:"feedback_count"`
	AccessCount   int       `json:"access_count"`
	ArchivedAt    time.Time `json:"archived_at"`
}

// Export writes the given records and returns the produced file path.
func (w *Writer) Export(ctx context.Context, records []domain.ArchivedChunk) (string, error) {
	if len(records) == 0 {
		return "", domain.ErrInvalidInput
	}

	name := fmt.Sprintf("archive-%s.jsonl", time.Now().UTC().Format("20060102-150405"))
	finalPath := filepath.Join(w.dir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("creating archive file: %w", err)
	}

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if ctx.Err() != nil {
			f.Close()
			os.Remove(tmpPath)
			return "", ctx.Err()
		}

		line := archiveRecord{
			ChunkID:       rec.Chunk.ID,
			PageID:        rec.Chunk.PageID,
			Content:       rec.Chunk.Content,
			Type:          string(rec.Chunk.Type),
			ParentHeaders: rec.Chunk.ParentHeaders,
			SpaceKey:      rec.Chunk.SpaceKey,
			Score:         rec.Quality.Score,
			FeedbackCount: rec.Quality.FeedbackCount,
			AccessCount:   rec.Quality.AccessCount,
			ArchivedAt:    rec.ArchivedAt,
		}
		if err := enc.Encode(line); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("writing archive record: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing archive file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalising archive file: %w", err)
	}

	return finalPath, nil
}
