// Package domain defines the core business entities for Curator.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A searchable unit of knowledge-base content
//   - QualityScore: The trust score and lifecycle status of a chunk
//   - FeedbackEvent: An immutable user signal on a chunk
//   - Conflict: A detected contradiction between two chunks
//   - RankedResult: An ephemeral per-query fusion result
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
