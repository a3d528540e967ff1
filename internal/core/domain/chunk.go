package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ChunkType classifies the structural origin of a chunk.
type ChunkType string

// Available chunk types.
const (
	// ChunkTypeText is prose content.
	ChunkTypeText ChunkType = "text"

	// ChunkTypeCode is a fenced code block.
	ChunkTypeCode ChunkType = "code"

	// ChunkTypeTable is tabular content.
	ChunkTypeTable ChunkType = "table"

	// ChunkTypeList is a bulleted or numbered list.
	ChunkTypeList ChunkType = "list"
)

// IsValid returns true if the chunk type is recognised.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeText, ChunkTypeCode, ChunkTypeTable, ChunkTypeList:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ChunkType) String() string {
	return string(t)
}

// Chunk represents a searchable unit of knowledge-base content.
// Pages are split into chunks for granular search results.
type Chunk struct {
	// ID is the unique identifier for the chunk. It is derived
	// deterministically from the page, position and content hash so
	// that quality scores and feedback survive re-indexing of
	// unchanged content.
	ID string

	// PageID links to the owning page.
	PageID string

	// PageTitle is the owning page's human-readable title.
	PageTitle string

	// URL is the canonical location of the owning page.
	URL string

	// Content is the text content of this chunk.
	Content string

	// Type classifies the chunk (text, code, table, list).
	Type ChunkType

	// Index is the ordinal position within the page.
	Index int

	// CharCount is the length of Content in bytes.
	CharCount int

	// ParentHeaders is the header breadcrumb above this chunk,
	// ordered from outermost to innermost heading.
	ParentHeaders []string

	// SpaceKey identifies the space the owning page belongs to.
	SpaceKey string

	// DocType is the document classification of the owning page.
	DocType string

	// Topics contains topic labels assigned at ingestion.
	Topics []string

	// CreatedAt is when the chunk was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the chunk content last changed.
	UpdatedAt time.Time
}

// ChunkID computes the stable identifier for a chunk.
// Identical (pageID, index, content) always produce the same ID.
func ChunkID(pageID string, index int, content string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", pageID, index, content)))
	return fmt.Sprintf("%s-%d-%s", pageID, index, hex.EncodeToString(h[:8]))
}

// Page is the ingestion-boundary representation of a source document.
// Conversion from external formats (Confluence, exports) happens once
// here, never inside core logic.
type Page struct {
	// ID is the source page identifier.
	ID string

	// Title is the human-readable page title.
	Title string

	// Content is the page body as markdown.
	Content string

	// SpaceKey identifies the containing space.
	SpaceKey string

	// DocType is the document classification (runbook, guide, ...).
	DocType string

	// Topics contains topic labels for the page.
	Topics []string

	// URL is the canonical page location.
	URL string

	// UpdatedAt is the source-side last modification time.
	UpdatedAt time.Time
}
