package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/curator/internal/core/domain"
)

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	err := retryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_NonTransientStopsImmediately(t *testing.T) {
	for _, sentinel := range []error{domain.ErrUnauthorized, domain.ErrInvalidInput} {
		calls := 0
		err := retryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return sentinel
		})

		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	}
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryWithBackoff(ctx, 3, time.Hour, func() error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
