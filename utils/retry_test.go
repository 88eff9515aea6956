package utils

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTransientUntilCeiling(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, Logger: NewNopLogger()}

	calls := 0
	err := r.Do(context.Background(), "places.textsearch", func() error {
		calls++
		return fmt.Errorf("dial: %w", syscall.ECONNRESET)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, syscall.ECONNRESET)
}

func TestRetryStopsOnNonTransient(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, Logger: NewNopLogger()}

	notFound := errors.New("status ZERO_RESULTS")
	calls := 0
	err := r.Do(context.Background(), "places.details", func() error {
		calls++
		return notFound
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, notFound)
}

func TestRetrySucceedsAfterTransient(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := r.Do(context.Background(), "geocode", func() error {
		calls++
		if calls < 2 {
			return syscall.ECONNREFUSED
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Second}
	err := r.Do(ctx, "geocode", func() error { return syscall.ECONNRESET })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"canceled", context.Canceled, false},
		{"plain error", errors.New("bad status 500"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
