package domain

import "time"

// Score bounds. Scores are always clamped into this range.
const (
	MinScore = 0.0
	MaxScore = 100.0

	// InitialScore is assigned to newly indexed chunks.
	InitialScore = 70.0
)

// QualityStatus is the lifecycle state of a chunk.
type QualityStatus string

// Lifecycle states. Transitions are one-directional except for
// explicit re-promotion of deprecated chunks by an admin.
const (
	// StatusActive chunks participate in search with full visibility.
	StatusActive QualityStatus = "active"

	// StatusDeprecated chunks scored below the deprecation threshold.
	StatusDeprecated QualityStatus = "deprecated"

	// StatusColdStorage chunks are removed from default visibility.
	StatusColdStorage QualityStatus = "cold_storage"

	// StatusHardArchived chunks have been exported and removed from
	// active indices. Terminal; restoring requires a manual operation.
	StatusHardArchived QualityStatus = "hard_archived"
)

// IsValid returns true if the status is recognised.
func (s QualityStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusDeprecated, StatusColdStorage, StatusHardArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s QualityStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the state machine permits moving
// from s to next. Re-promotion (deprecated -> active) is allowed but
// must be driven by an explicit admin action in the service layer.
func (s QualityStatus) CanTransitionTo(next QualityStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusDeprecated || next == StatusColdStorage
	case StatusDeprecated:
		return next == StatusActive || next == StatusColdStorage
	case StatusColdStorage:
		return next == StatusHardArchived
	case StatusHardArchived:
		return false
	default:
		return false
	}
}

// QualityScore is the mutable trust state of a chunk.
// It is owned exclusively by the quality scorer; all mutation goes
// through its API so concurrent feedback cannot lose updates.
type QualityScore struct {
	// ChunkID identifies the chunk (1:1).
	ChunkID string

	// Score is the current trust score in [0, 100].
	Score float64

	// FeedbackCount is the total number of feedback events applied.
	FeedbackCount int

	// AccessCount is a rolling count of recent accesses. It protects
	// frequently used chunks from decay.
	AccessCount int

	// LastAccessedAt is when the chunk last appeared in served results.
	LastAccessedAt time.Time

	// Status is the lifecycle state.
	Status QualityStatus

	// StatusChangedAt is when Status last changed. Used to age chunks
	// out of cold storage.
	StatusChangedAt time.Time

	// DecayedAt is the point up to which decay has been applied.
	// Recalculation only charges decay for whole days elapsed since
	// this timestamp, which is what makes the batch job idempotent.
	DecayedAt time.Time

	// UpdatedAt is when any field last changed.
	UpdatedAt time.Time
}

// ClampScore bounds a score into [MinScore, MaxScore].
func ClampScore(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// QualityConfig holds the tunable parameters of the quality lifecycle.
// The defaults mirror the shipped configuration; all values can be
// overridden from the config file.
type QualityConfig struct {
	// DeprecatedThreshold is the score below which an active chunk
	// becomes deprecated.
	DeprecatedThreshold float64

	// ArchiveThreshold is the score below which a chunk moves to
	// cold storage.
	ArchiveThreshold float64

	// BoostWeight scales the quality adjustment applied to fused
	// relevance scores (0.2 gives at most a +-10% swing).
	BoostWeight float64

	// DecayPerDay is the base daily decay subtracted from unaccessed
	// chunks during recalculation.
	DecayPerDay float64

	// DecayFloor is the score decay converges towards. Decay never
	// pushes a score below this floor; explicit negative feedback can.
	DecayFloor float64

	// AccessProtection is the rolling access count at which decay is
	// fully suppressed. Lower counts slow decay proportionally.
	AccessProtection int

	// MaxAgeDays moves chunks unaccessed for this long into cold
	// storage regardless of score.
	MaxAgeDays int

	// ColdArchiveDays is how long a chunk stays in cold storage
	// before it is exported and hard-archived.
	ColdArchiveDays int

	// Impacts maps feedback types to signed score deltas.
	Impacts map[FeedbackType]float64
}

// DefaultQualityConfig returns the shipped lifecycle parameters.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		DeprecatedThreshold: 40,
		ArchiveThreshold:    10,
		BoostWeight:         0.2,
		DecayPerDay:         0.5,
		DecayFloor:          20,
		AccessProtection:    10,
		MaxAgeDays:          365,
		ColdArchiveDays:     90,
		Impacts: map[FeedbackType]float64{
			FeedbackHelpful:   +2,
			FeedbackOutdated:  -15,
			FeedbackIncorrect: -25,
			FeedbackConfusing: -5,
		},
	}
}

// Validate checks threshold ordering and impact signs. Positive
// feedback must never decrease a score and vice versa.
func (c QualityConfig) Validate() error {
	if c.ArchiveThreshold >= c.DeprecatedThreshold {
		return ErrInvalidInput
	}
	for ft, impact := range c.Impacts {
		if !ft.IsValid() {
			return ErrInvalidInput
		}
		if ft.IsPositive() && impact < 0 {
			return ErrInvalidInput
		}
		if !ft.IsPositive() && impact > 0 {
			return ErrInvalidInput
		}
	}
	return nil
}

// ImpactFor returns the configured score delta for a feedback type.
func (c QualityConfig) ImpactFor(ft FeedbackType) float64 {
	if impact, ok := c.Impacts[ft]; ok {
		return impact
	}
	return 0
}
