package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexNotBuilt indicates the keyword index has not been built
	// yet. Searches against an unbuilt index return empty results with
	// a warning rather than failing.
	ErrIndexNotBuilt = errors.New("keyword index not built")

	// ErrRateLimited indicates a client exceeded its request budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrJobInProgress indicates a batch job of the same type is
	// already running. Jobs are single-flight per type.
	ErrJobInProgress = errors.New("job already in progress")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Features requiring LLM (conflict judging) are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrSearchUnavailable indicates the keyword search engine is not
	// configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrVectorUnavailable indicates the vector/graph provider is not
	// configured or failed its health check. Semantic and graph
	// retrieval are disabled.
	ErrVectorUnavailable = errors.New("vector search provider unavailable")

	// ErrInvalidTransition indicates a lifecycle state change the
	// state machine does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized indicates an authentication failure against an
	// external backend. Never retried.
	ErrUnauthorized = errors.New("unauthorized")
)
