package driven

import "context"

// LLMService provides language model operations for content
// judgement. This is an optional service - when nil, features that
// require it (conflict judging) are disabled and everything else
// keeps working.
type LLMService interface {
	// Generate produces a text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateJSON produces a structured completion. Malformed or
	// non-JSON model output degrades to an empty map rather than an
	// error; callers must treat missing keys as "no answer".
	GenerateJSON(ctx context.Context, prompt string, opts GenerateOptions) (map[string]any, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
