// Package retry wraps a single call in a fixed-backoff retry loop, kept
// separate from the call itself.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do invokes fn up to maxAttempts times, sleeping backoff between attempts.
// It stops early on success or when the context is done, and returns the
// last error otherwise.
func Do(ctx context.Context, maxAttempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
