package idalloc

import (
	"context"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

type redisAllocator struct {
	client redis.Cmdable
	prefix string
}

// NewRedisAllocator keeps each counter in its own key and relies on INCR.
func NewRedisAllocator(client redis.Cmdable, prefix string) Allocator {
	return &redisAllocator{client: client, prefix: prefix}
}

func (a *redisAllocator) Next(ctx context.Context, counter string) (int64, error) {
	if err := validateCounter(counter); err != nil {
		return 0, err
	}
	value, err := a.client.Incr(ctx, a.key(counter)).Result()
	if err != nil {
		return 0, apperrors.NewAllocationError(counter, err)
	}
	return value, nil
}

func (a *redisAllocator) key(counter string) string {
	return a.prefix + "counter:" + counter
}
