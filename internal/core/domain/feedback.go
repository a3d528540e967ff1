package domain

import "time"

// FeedbackType classifies a user signal on a chunk.
type FeedbackType string

// Available feedback types.
const (
	// FeedbackHelpful indicates the chunk answered the question.
	FeedbackHelpful FeedbackType = "helpful"

	// FeedbackOutdated indicates the content is stale.
	FeedbackOutdated FeedbackType = "outdated"

	// FeedbackIncorrect indicates the content is wrong.
	FeedbackIncorrect FeedbackType = "incorrect"

	// FeedbackConfusing indicates the content is unclear.
	FeedbackConfusing FeedbackType = "confusing"
)

// IsValid returns true if the feedback type is recognised.
func (t FeedbackType) IsValid() bool {
	switch t {
	case FeedbackHelpful, FeedbackOutdated, FeedbackIncorrect, FeedbackConfusing:
		return true
	default:
		return false
	}
}

// IsPositive returns true for feedback that should raise the score.
func (t FeedbackType) IsPositive() bool {
	return t == FeedbackHelpful
}

// String returns the string representation.
func (t FeedbackType) String() string {
	return string(t)
}

// FeedbackEvent is an immutable record of a user signal on a chunk.
// Events are append-only; only the review annotation may change after
// creation.
type FeedbackEvent struct {
	// ID is the unique event identifier.
	ID string

	// ChunkID is the chunk the feedback applies to.
	ChunkID string

	// UserID identifies the submitting user.
	UserID string

	// Type is the feedback classification.
	Type FeedbackType

	// Comment is an optional free-text note.
	Comment string

	// CreatedAt is when the feedback was submitted.
	CreatedAt time.Time

	// Reviewed marks the event as seen by an admin.
	Reviewed bool
}

// FeedbackStats summarises feedback counts for a chunk.
type FeedbackStats struct {
	// Total is the number of feedback events.
	Total int

	// Negative is the number of outdated/incorrect/confusing events.
	Negative int
}

// NegativeRatio returns the fraction of negative feedback, or 0 when
// there is no feedback at all.
func (s FeedbackStats) NegativeRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Negative) / float64(s.Total)
}
