package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/ekilore-core/pkg/redis"
)

const recordKeyPattern = "ekilore:record:%s"

// KV is the subset of pkg/redis used by RedisStore.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// RedisStore keeps records as plain keys without expiry.
type RedisStore struct {
	client KV
}

// NewRedisStore returns a store backed by client.
func NewRedisStore(client KV) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(name string) string {
	return fmt.Sprintf(recordKeyPattern, name)
}

func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, recordKey(name))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", name, err)
	}

	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	if err := s.client.Set(ctx, recordKey(name), data, 0); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Delete(ctx, recordKey(name)); err != nil {
		return fmt.Errorf("redis del %s: %w", name, err)
	}

	return nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
