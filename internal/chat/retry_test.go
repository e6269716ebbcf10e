package chat

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestIsOverloaded(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "503 value", err: genai.APIError{Code: http.StatusServiceUnavailable}, expected: true},
		{name: "503 pointer", err: &genai.APIError{Code: http.StatusServiceUnavailable}, expected: true},
		{name: "wrapped 503", err: errors.Wrap(genai.APIError{Code: http.StatusServiceUnavailable}, "generate"), expected: true},
		{name: "429", err: genai.APIError{Code: http.StatusTooManyRequests}, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "nil", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsOverloaded(tt.err))
		})
	}
}

func TestBackoffDo(t *testing.T) {
	overloaded := genai.APIError{Code: http.StatusServiceUnavailable}

	tests := []struct {
		name          string
		maxRetries    int
		failures      []error
		expectedCalls int
		expectedError bool
	}{
		{
			name:          "success on first call",
			maxRetries:    3,
			expectedCalls: 1,
		},
		{
			name:          "recovers after two 503",
			maxRetries:    3,
			failures:      []error{overloaded, overloaded},
			expectedCalls: 3,
		},
		{
			name:          "gives up after max retries",
			maxRetries:    2,
			failures:      []error{overloaded, overloaded, overloaded, overloaded},
			expectedCalls: 3,
			expectedError: true,
		},
		{
			name:          "does not retry other errors",
			maxRetries:    3,
			failures:      []error{genai.APIError{Code: http.StatusBadRequest}},
			expectedCalls: 1,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Backoff{MaxRetries: tt.maxRetries, BaseDelay: time.Millisecond}

			calls := 0
			err := b.Do(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBackoffStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := Backoff{MaxRetries: 5, BaseDelay: time.Hour}

	calls := 0
	err := b.Do(ctx, func() error {
		calls++
		cancel()
		return genai.APIError{Code: http.StatusServiceUnavailable}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
