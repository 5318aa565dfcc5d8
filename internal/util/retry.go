// Package util provides shared utility functions for sharefs.
package util

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"sharefs/internal/common"
)

// ConnectRetryOptions returns retry options for establishing a share
// connection from the CLI. The core never retries; retrying is a caller
// decision, and this is the caller's policy.
func ConnectRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(200 * time.Millisecond),
		retry.MaxDelay(2 * time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTransient),
		retry.Context(ctx),
	}
}

// DefaultRetryOptions returns sensible defaults for retry operations.
func DefaultRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(100 * time.Millisecond),
		retry.MaxDelay(1 * time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	}
}

// Retry executes fn with retry logic.
// If all attempts fail, the error is retry-go's retry.Error listing every
// attempt's error, or only the last one when opts include
// retry.LastErrorOnly(true).
func Retry(ctx context.Context, fn func() error, opts ...retry.Option) error {
	if len(opts) == 0 {
		opts = DefaultRetryOptions(ctx)
	}
	return retry.Do(fn, opts...)
}

// RetryWithResult executes fn with retry logic and returns the result.
func RetryWithResult[T any](ctx context.Context, fn func() (T, error), opts ...retry.Option) (T, error) {
	if len(opts) == 0 {
		opts = DefaultRetryOptions(ctx)
	}
	return retry.DoWithData(fn, opts...)
}

// IsTransient returns true for failures worth retrying: connection
// establishment and raw I/O errors. Semantic failures (not found, type
// mismatch, auth) are final.
func IsTransient(err error) bool {
	switch common.KindOf(err) {
	case common.KindConnectFailed, common.KindIO:
		return true
	}
	return false
}
