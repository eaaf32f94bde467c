package grpc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Coalesce runs fn once per key for all callers that arrive while a call with
// the same key is in flight. Results are not kept once the call returns.
//
// fn gets a context that keeps ctx's values but not its cancellation, so one
// caller giving up does not fail the others; fn applies its own deadline.
// Each caller waits only as long as its own ctx allows.
func Coalesce[T any](
	ctx context.Context,
	sf *singleflight.Group,
	key string,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	ch := sf.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}

	value, ok := res.Val.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if res.Shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}
