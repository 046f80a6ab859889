package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/support-relay/internal/errors"
)

var fast = Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func serverError() error {
	return perrors.NewPlatformError("fetch channel", 503, errors.New("upstream unavailable"))
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryableError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		return perrors.NewPlatformError("fetch channel", 404, errors.New("unknown channel"))
	})
	assert.True(t, perrors.IsNotFound(err))
	assert.Equal(t, 1, calls)
}

func TestDo_RetryableError_EventualSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return serverError()
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_RetryableError_AllFail(t *testing.T) {
	calls := 0
	cfg := fast
	cfg.MaxAttempts = 2
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return perrors.ErrUnavailable
	})
	assert.ErrorIs(t, err, perrors.ErrUnavailable)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Second}
	err := Do(ctx, cfg, func(ctx context.Context) error {
		calls++
		return serverError()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{}, func(ctx context.Context) error {
		calls++
		return serverError()
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestValue(t *testing.T) {
	calls := 0
	got, err := Value(context.Background(), fast, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", serverError()
		}
		return "thread-1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "thread-1", got)
	assert.Equal(t, 2, calls)
}
