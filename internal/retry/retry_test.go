package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}, nil, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrorThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpOnNonTransientError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}, nil, func() error {
		calls++
		return errors.New("permission denied")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "non-transient error should not be retried")
}

func TestDo_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}, nil, func() error {
		calls++
		return fmt.Errorf("attempt %d: timeout", calls)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries retries")
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Config{MaxRetries: 2, InitialBackoff: time.Millisecond}, nil, func() error {
		return errors.New("should not be called")
	})
	assert.Error(t, err)
}
