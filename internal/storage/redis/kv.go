package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// KV 以 Redis 字符串实现的持久化上下文，键不过期
type KV struct {
	client redis.Cmdable
	prefix string
}

// NewKV 所有键加上 prefix
func NewKV(client redis.Cmdable, prefix string) *KV {
	return &KV{client: client, prefix: prefix}
}

func (k *KV) Has(ctx context.Context, key string) (bool, error) {
	n, err := k.client.Exists(ctx, k.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := k.client.Get(ctx, k.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	return k.client.Set(ctx, k.prefix+key, value, 0).Err()
}
