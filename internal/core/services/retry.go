package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/logger"
)

// Retry defaults for external backend calls (LLM judge, vector
// provider).
const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 500 * time.Millisecond
)

// retryWithBackoff runs fn up to attempts times with doubling delay.
// Non-transient failures (auth, invalid input) and context
// cancellation stop immediately.
func retryWithBackoff(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if base <= 0 {
		base = defaultRetryBase
	}

	var err error
	delay := base

	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		logger.Debug("Transient failure (attempt %d/%d), retrying in %s: %v", attempt, attempts, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}

// isTransient classifies an error for retry purposes. Auth failures
// and malformed input never resolve on their own; everything else
// (timeouts, connection resets, rate limits) is worth another try.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
