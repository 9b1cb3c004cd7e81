package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "mfp:msg:"

// RedisStore keeps each entry as a Redis list, one element per slice. A
// sorted set scored by write time indexes the keys.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the prefix prepended to every Redis key
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL expires entries after ttl. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRedisLogger sets the logger
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore wraps an existing client
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DialRedis connects to a single Redis server and checks it answers
func DialRedis(ctx context.Context, addr string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) dataKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// Put replaces the list stored under key
func (s *RedisStore) Put(ctx context.Context, key string, slices [][]byte) error {
	if err := checkPut(key, slices); err != nil {
		return err
	}

	values := make([]interface{}, len(slices))
	for i, slice := range slices {
		values[i] = slice
	}

	dataKey := s.dataKey(key)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, dataKey)
	pipe.RPush(ctx, dataKey, values...)
	if s.ttl > 0 {
		pipe.Expire(ctx, dataKey, s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(time.Now().UnixNano()), Member: key})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis put %s: %w", key, err)
	}

	s.logger.Debug("stored flattened message",
		"key", key,
		"slices", len(slices))
	return nil
}

// Get returns the slices stored under key
func (s *RedisStore) Get(ctx context.Context, key string) ([][]byte, error) {
	values, err := s.client.LRange(ctx, s.dataKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis get %s: %w", key, err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	slices := make([][]byte, len(values))
	for i, v := range values {
		slices[i] = []byte(v)
	}
	return slices, nil
}

// Delete removes key and its index entry
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.dataKey(key))
	pipe.ZRem(ctx, s.indexKey(), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis delete %s: %w", key, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Keys lists indexed keys oldest first. Index entries whose data has
// expired are pruned.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis keys: %w", err)
	}
	if s.ttl <= 0 {
		return keys, nil
	}

	live := make([]string, 0, len(keys))
	for _, key := range keys {
		n, err := s.client.Exists(ctx, s.dataKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("store: redis keys: %w", err)
		}
		if n == 0 {
			s.client.ZRem(ctx, s.indexKey(), key)
			continue
		}
		live = append(live, key)
	}
	return live, nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
