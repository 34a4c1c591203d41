package middleware

import (
    "context"
    "time"

    "github.com/allegro/bigcache/v3"
    "github.com/redis/go-redis/v9"
)

// CacheStore holds encoded responses.  Purge drops every entry under the
// cache prefix.
type CacheStore interface {
    Get(ctx context.Context, key string) ([]byte, bool)
    Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
    Purge(ctx context.Context) error
}

const purgeBatch = 200

// RedisStore keeps responses in Redis so every API replica shares them.
type RedisStore struct {
    rdb    *redis.Client
    prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
    return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
    bs, err := s.rdb.Get(ctx, key).Bytes()
    if err != nil {
        return nil, false
    }
    return bs, true
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
    return s.rdb.SetEx(ctx, key, val, ttl).Err()
}

// Purge deletes every key under the prefix.  Keys are collected with SCAN
// first and deleted afterwards in batches, so the iteration never runs over
// a keyspace it is shrinking.
func (s *RedisStore) Purge(ctx context.Context) error {
    var keys []string
    iter := s.rdb.Scan(ctx, 0, s.prefix+":*", purgeBatch).Iterator()
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        return err
    }
    for len(keys) > 0 {
        n := min(len(keys), purgeBatch)
        if err := s.rdb.Del(ctx, keys[:n]...).Err(); err != nil {
            return err
        }
        keys = keys[n:]
    }
    return nil
}

// MemoryStore is the in-process fallback used when Redis is unavailable.
// Entries live for the TTL given at construction; the per-call ttl is
// ignored.
type MemoryStore struct {
    bc *bigcache.BigCache
}

func NewMemoryStore(ctx context.Context, ttl time.Duration, maxMB int) (*MemoryStore, error) {
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    conf := bigcache.DefaultConfig(ttl)
    conf.CleanWindow = ttl
    conf.Verbose = false
    if maxMB > 0 {
        conf.HardMaxCacheSize = maxMB
    }
    bc, err := bigcache.New(ctx, conf)
    if err != nil {
        return nil, err
    }
    return &MemoryStore{bc: bc}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
    bs, err := s.bc.Get(key)
    if err != nil {
        return nil, false
    }
    return bs, true
}

func (s *MemoryStore) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
    return s.bc.Set(key, val)
}

func (s *MemoryStore) Purge(context.Context) error { return s.bc.Reset() }

func (s *MemoryStore) Close() error { return s.bc.Close() }
