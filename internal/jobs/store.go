package jobs

import (
	"context"
	"time"
)

// JSONCache is the subset of the Redis cache the status store needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisStore keeps job status under job:<id> until ttl passes.
type RedisStore struct {
	cache JSONCache
	ttl   time.Duration
}

func NewRedisStore(cache JSONCache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: cache, ttl: ttl}
}

func statusKey(id string) string {
	return "job:" + id
}

func (s *RedisStore) Save(ctx context.Context, status Status) error {
	return s.cache.SetJSON(ctx, statusKey(status.ID), status, s.ttl)
}

func (s *RedisStore) Load(ctx context.Context, id string) (Status, error) {
	var status Status
	found, err := s.cache.GetJSON(ctx, statusKey(id), &status)
	if err != nil {
		return Status{}, err
	}
	if !found {
		return Status{}, ErrJobNotFound
	}
	return status, nil
}
