package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

type declaredRetryable struct {
	retryable bool
}

func (e *declaredRetryable) Error() string     { return "declared" }
func (e *declaredRetryable) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("invalid request")))
	assert.True(t, IsRetryable(errors.New("connection refused")))
	assert.True(t, IsRetryable(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsRetryable(errors.New("upstream timed out")))

	// An error that declares its retryability is believed over patterns.
	assert.True(t, IsRetryable(&declaredRetryable{retryable: true}))
	assert.False(t, IsRetryable(&declaredRetryable{retryable: false}))
}

func TestDoWithResult_SucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_RetriesTransient(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_PermanentFailsImmediately(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		return "", errors.New("invalid model")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (attemptResult struct{}, e error) {
		calls++
		return struct{}{}, errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_ContextCancelDuringBackoff(t *testing.T) {
	cfg := &Config{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   1.0,
	}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
			calls++
			return struct{}{}, errors.New("timeout")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls == 1 {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
