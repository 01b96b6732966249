package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock re-acquired by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLockAdapter struct {
	client *redis.Client
	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisLockAdapter(addr, password string, db int) *RedisLockAdapter {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db, PoolSize: 50})
	return NewRedisLockAdapterWithClient(c)
}

func NewRedisLockAdapterWithClient(client *redis.Client) *RedisLockAdapter {
	return &RedisLockAdapter{client: client, tokens: make(map[string]string)}
}

func (r *RedisLockAdapter) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	r.mu.Lock()
	r.tokens[key] = token
	r.mu.Unlock()
	return true, nil
}

func (r *RedisLockAdapter) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	token, ok := r.tokens[key]
	delete(r.tokens, key)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, r.client, []string{key}, token).Err()
}

func (r *RedisLockAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisLockAdapter) Close() error {
	return r.client.Close()
}
