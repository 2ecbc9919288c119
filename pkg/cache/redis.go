package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "peerguard:versions:"

// RedisBackend stores entries as JSON strings in Redis, shared between
// processes and hosts. Keys carry no expiry so stale reads stay possible.
type RedisBackend struct {
	client *redis.Client
	addr   string
}

// OpenRedis connects to the server at rawURL (redis://host:port/db) and pings it.
func OpenRedis(ctx context.Context, rawURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	opts.MaxRetries = 1
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisBackend{client: client, addr: opts.Addr}, nil
}

func (b *RedisBackend) Kind() BackendKind { return BackendRedis }

// Addr returns the server address.
func (b *RedisBackend) Addr() string { return b.addr }

func redisKey(name, target string) string { return redisKeyPrefix + target + ":" + name }

func (b *RedisBackend) Get(ctx context.Context, name, target string) (*Entry, error) {
	data, err := b.client.Get(ctx, redisKey(name, target)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return &e, nil
}

func (b *RedisBackend) Put(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, redisKey(e.PackageName, e.Target), data, 0).Err()
}

func (b *RedisBackend) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (b *RedisBackend) Len(ctx context.Context) (int, error) {
	keys, err := b.keys(ctx)
	return len(keys), err
}

func (b *RedisBackend) Clear(ctx context.Context) (int, error) {
	keys, err := b.keys(ctx)
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	n, err := b.client.Del(ctx, keys...).Result()
	return int(n), err
}

func (b *RedisBackend) Close() error { return b.client.Close() }

var _ Backend = (*RedisBackend)(nil)
