package domain

import "time"

// ConflictStatus is the review state of a detected conflict.
type ConflictStatus string

// Conflict states. Open conflicts are closed only by explicit admin
// action.
const (
	ConflictOpen      ConflictStatus = "open"
	ConflictDismissed ConflictStatus = "dismissed"
	ConflictResolved  ConflictStatus = "resolved"
)

// IsValid returns true if the status is recognised.
func (s ConflictStatus) IsValid() bool {
	switch s {
	case ConflictOpen, ConflictDismissed, ConflictResolved:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ConflictStatus) String() string {
	return string(s)
}

// Conflict records a detected contradiction between two chunks.
type Conflict struct {
	// ID is the unique conflict identifier.
	ID string

	// ChunkIDA and ChunkIDB are the conflicting chunks. The pair is
	// stored in normalised order so (a, b) and (b, a) are the same
	// conflict.
	ChunkIDA string
	ChunkIDB string

	// Similarity is the embedding cosine similarity between the two
	// chunks at detection time.
	Similarity float64

	// Confidence is the LLM-judged contradiction confidence.
	Confidence float64

	// Summary is the judge's one-line description of the
	// contradiction, when available.
	Summary string

	// Status is the review state.
	Status ConflictStatus

	// DetectedAt is when the conflict was created.
	DetectedAt time.Time

	// ResolvedAt is when the conflict was dismissed or resolved.
	ResolvedAt time.Time
}

// NormalisePair orders two chunk IDs so the same pair always produces
// the same key regardless of argument order.
func NormalisePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ConflictConfig holds conflict detection tunables.
type ConflictConfig struct {
	// SimilarityThreshold is the minimum embedding similarity before
	// two chunks are even considered for judging.
	SimilarityThreshold float64

	// ConfidenceThreshold is the minimum LLM-reported contradiction
	// confidence that creates a conflict record.
	ConfidenceThreshold float64

	// MaxNeighbours caps the number of similar chunks fetched per
	// scanned chunk.
	MaxNeighbours int
}

// DefaultConflictConfig returns the shipped detection parameters.
func DefaultConflictConfig() ConflictConfig {
	return ConflictConfig{
		SimilarityThreshold: 0.85,
		ConfidenceThreshold: 0.7,
		MaxNeighbours:       5,
	}
}
