package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCacheAdapter struct {
	client *redis.Client
	prefix string
}

func NewRedisCacheAdapter(addr, password string, db int, prefix string) *RedisCacheAdapter {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db, PoolSize: 50})
	return NewRedisCacheAdapterWithClient(c, prefix)
}

func NewRedisCacheAdapterWithClient(client *redis.Client, prefix string) *RedisCacheAdapter {
	return &RedisCacheAdapter{client: client, prefix: prefix}
}

func (r *RedisCacheAdapter) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(val, dest)
}

func (r *RedisCacheAdapter) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, b, ttl).Err()
}

func (r *RedisCacheAdapter) Close() error {
	return r.client.Close()
}
