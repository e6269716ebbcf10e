package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// Backoff retries calls rejected with 503, doubling the delay each time.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// IsOverloaded reports whether err is an upstream 503.
func IsOverloaded(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusServiceUnavailable
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusServiceUnavailable
	}
	return false
}

// Do calls fn until it succeeds, fails with a non-retryable error or the retries run out.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	delay := b.BaseDelay
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !IsOverloaded(err) || attempt >= b.MaxRetries {
			return err
		}
		if err := b.wait(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

func (b Backoff) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
