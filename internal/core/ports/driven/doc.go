// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports).
//
// Core services depend on these interfaces; adapters implement them.
// The retrieval engine only ever sees ranked lists, stores and opaque
// completion capabilities - never a concrete database, HTTP client or
// LLM vendor.
package driven
