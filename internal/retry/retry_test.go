package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_Success(t *testing.T) {
	called := 0
	err := Do(context.Background(), Config{MaxRetries: 3, InitialBackoff: time.Millisecond}, func() error {
		called++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, called)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	called := 0
	err := Do(context.Background(), Config{MaxRetries: 5, InitialBackoff: time.Millisecond}, func() error {
		called++
		if called < 3 {
			return errors.New("exit status 1")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, called)
}

func TestDo_Exhausted(t *testing.T) {
	testErr := errors.New("persistent")
	called := 0
	err := Do(context.Background(), Config{MaxRetries: 3, InitialBackoff: time.Millisecond}, func() error {
		called++
		return testErr
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, testErr)
	assert.Equal(t, 3, called)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDo_NonRetryable(t *testing.T) {
	fatal := errors.New("not found")
	called := 0
	err := Do(context.Background(), Config{MaxRetries: 5, InitialBackoff: time.Millisecond}, func() error {
		called++
		return fatal
	}, func(err error) bool { return !errors.Is(err, fatal) })

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, called)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	called := 0
	err := Do(context.Background(), Config{}, func() error {
		called++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, called)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := 0
	err := Do(ctx, Config{MaxRetries: 5, InitialBackoff: time.Second}, func() error {
		called++
		cancel()
		return errors.New("transient")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, called)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, calculateBackoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, calculateBackoff(cfg, 2))
	assert.Equal(t, 300*time.Millisecond, calculateBackoff(cfg, 3))

	cfg.Jitter = 0.5
	assert.Equal(t, 110*time.Millisecond, calculateBackoff(cfg, 1))
}
