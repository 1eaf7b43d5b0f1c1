package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"nil", nil, "", false},
		{"auth 401", errors.New("HTTP 401 Unauthorized"), ErrorTypeAuth, false},
		{"invalid key", errors.New("invalid api key provided"), ErrorTypeAuth, false},
		{"model missing", errors.New("model gpt-99 does not exist"), ErrorTypeModel, false},
		{"endpoint 404", errors.New("404 page not found"), ErrorTypeEndpoint, false},
		{"refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{"timeout", errors.New("context deadline exceeded (Client.Timeout)"), ErrorTypeEndpoint, true},
		{"rate limit", errors.New("429 too many requests"), ErrorTypeRateLimit, true},
		{"server 503", errors.New("HTTP 503 Service Unavailable"), ErrorTypeEndpoint, true},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			if tt.err == nil {
				assert.Nil(t, classified)
				return
			}
			require.NotNil(t, classified)
			assert.Equal(t, tt.wantType, classified.Type)
			assert.Equal(t, tt.retryable, classified.Retryable)
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeEmpty, "empty response", true, nil)
	classified := ClassifyError(fmt.Errorf("complete: %w", orig))
	assert.Same(t, orig, classified)
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrorTypeRateLimit, "rate limited", true, errors.New("too many requests"))
	err.StatusCode = 429
	err.Model = "gpt-4o-mini"

	msg := err.Error()
	assert.Contains(t, msg, "rate_limit")
	assert.Contains(t, msg, "HTTP 429")
	assert.Contains(t, msg, "model=gpt-4o-mini")
	assert.Contains(t, msg, "too many requests")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(ErrorTypeUnknown, "wrapped", false, cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsRetryableAndGetErrorType(t *testing.T) {
	retryable := NewError(ErrorTypeRateLimit, "rate limited", true, nil)
	assert.True(t, IsRetryable(retryable))
	assert.Equal(t, ErrorTypeRateLimit, GetErrorType(retryable))

	plain := errors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(plain))
}
