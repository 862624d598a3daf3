package cache

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	gzcache "github.com/zeromicro/go-zero/core/stores/cache"
)

// Fetch reads key from c, or runs load and stores its result for ttl. A nil
// cache or a non-positive ttl always loads. Cache failures are logged and never
// fail the read.
func Fetch[T any](ctx context.Context, c gzcache.Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if c != nil {
		var cached T
		err := c.GetCtx(ctx, key, &cached)
		switch {
		case err == nil:
			return cached, nil
		case !c.IsNotFound(err):
			logx.WithContext(ctx).Errorf("get cache %s: %v", key, err)
		}
	}

	val, err := load()
	if err != nil {
		return val, err
	}
	if c != nil && ttl > 0 {
		if err := c.SetWithExpireCtx(ctx, key, val, ttl); err != nil {
			logx.WithContext(ctx).Errorf("set cache %s: %v", key, err)
		}
	}
	return val, nil
}
