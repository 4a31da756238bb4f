// Package cachesvc implements cache.Store with Redis and in process memory.
package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/cache"
)

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %s", conf.Address)
	}
	return client, nil
}

// RedisStore keeps JSON encoded values in Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ cache.Store = (*RedisStore)(nil)

// NewRedisStore namespaces every key with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cache.ErrCacheMiss
		}
		return errors.Wrapf(err, "getting %s", key)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return errors.Wrapf(err, "decoding %s", key)
	}
	return nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(s.client.Set(ctx, s.prefix+key, data, ttl).Err(), "setting %s", key)
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	return errors.Wrap(s.client.Del(ctx, prefixed...).Err(), "deleting keys")
}
