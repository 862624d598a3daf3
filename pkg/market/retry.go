package market

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const retryBackoffBase = 150 * time.Millisecond

// Retry runs fn up to maxRetries+1 times with doubling backoff. Unknown
// symbols, unsupported operations, 4xx responses and context errors are
// returned immediately.
func Retry(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	backoff := retryBackoffBase
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = fn(ctx); err == nil || !retryable(ctx, err) {
			return err
		}
		if attempt == maxRetries {
			break
		}
		logx.WithContext(ctx).Slowf("market: attempt %d failed, retrying in %s: %v", attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.ClientError() {
		return false
	}
	return !errors.Is(err, ErrSymbolNotFound) &&
		!errors.Is(err, ErrUnsupported) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
