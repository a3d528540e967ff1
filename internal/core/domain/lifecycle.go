package domain

import "time"

// Severity grades an obsolete-content flag.
type Severity string

// Severity levels, ordered low to high.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns a numeric order for sorting (high first).
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// ObsoleteFlag marks a chunk for human review.
type ObsoleteFlag struct {
	// ChunkID is the flagged chunk.
	ChunkID string

	// Reasons lists the triggered signals ("age", "low_quality",
	// "negative_feedback").
	Reasons []string

	// Severity grades the flag for reporting.
	Severity Severity

	// AgeDays is the chunk age at detection time.
	AgeDays int

	// QualityScore is the chunk's score at detection time.
	QualityScore float64

	// NegativeRatio is the negative-feedback fraction, when enough
	// feedback exists to be meaningful.
	NegativeRatio float64
}

// ArchivedChunk is the durable export record written when a chunk is
// hard-archived.
type ArchivedChunk struct {
	// Chunk is the full chunk at archival time.
	Chunk Chunk

	// Quality is the final quality state.
	Quality QualityScore

	// ArchivedAt is the export timestamp.
	ArchivedAt time.Time
}

// BatchSummary reports the outcome of a batch maintenance job. One
// item's failure never aborts the batch; it is counted here instead.
type BatchSummary struct {
	// Job names the batch job ("quality_decay", "archival", ...).
	Job string

	// Processed is the number of items examined.
	Processed int

	// Succeeded is the number of items updated.
	Succeeded int

	// Failed is the number of items that errored.
	Failed int

	// Skipped is the number of items deliberately left untouched.
	Skipped int

	// Took is the wall-clock duration of the run.
	Took time.Duration
}
