// Package retry is the bounded-retry combinator used by the storage-repair
// protocols. Attempt count and delay are configuration, not control flow, so
// tests inject a zero delay.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do runs fn up to maxAttempts times, sleeping delay between attempts. fn
// receives the 1-based attempt number. The first nil result wins; otherwise
// the last error is returned wrapped with the attempt count.
func Do(ctx context.Context, maxAttempts int, delay time.Duration, fn func(attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt < maxAttempts && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", maxAttempts, lastErr)
}
