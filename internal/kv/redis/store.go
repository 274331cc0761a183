package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/questlab/engagehub/internal/domain"
)

// Store implements domain.KV on Redis with a client-side byte quota.
//
// Key schema:
//
//	doc:{key}  - string value holding the serialized document
//	doc:index  - hash mapping logical key to its stored size in bytes
//
// The index hash is the source of truth for quota accounting; it is updated
// in the same pipeline as the document write. The engine is the single
// writer, so the read-then-write quota check needs no cross-process lock.
type Store struct {
	rdb   *redis.Client
	quota int64
}

// NewStore creates a Store backed by the given Client with the given total
// byte quota. A zero quota means unbounded.
func NewStore(c *Client, quota int64) *Store {
	return &Store{rdb: c.Underlying(), quota: quota}
}

const indexKey = "doc:index"

func docKey(key string) string { return "doc:" + key }

// Set stores value under key, rejecting writes that would push the total
// stored size over the quota with domain.ErrQuotaExceeded.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if s.quota > 0 {
		used, err := s.usedExcept(ctx, key)
		if err != nil {
			return fmt.Errorf("redis: quota check for %s: %w", key, err)
		}
		if used+int64(len(value)) > s.quota {
			return domain.ErrQuotaExceeded
		}
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, docKey(key), value, 0)
	pipe.HSet(ctx, indexKey, key, int64(len(value)))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Get returns the document stored under key, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, docKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key and its index entry. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, docKey(key))
	pipe.HDel(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	return nil
}

// Keys returns all logical keys present in the index.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.rdb.HKeys(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list keys: %w", err)
	}
	return keys, nil
}

// UsedBytes returns the total stored size across all keys per the index.
func (s *Store) UsedBytes(ctx context.Context) (int64, error) {
	return s.usedExcept(ctx, "")
}

// usedExcept sums the index sizes, skipping one key (the one about to be
// overwritten).
func (s *Store) usedExcept(ctx context.Context, except string) (int64, error) {
	sizes, err := s.rdb.HGetAll(ctx, indexKey).Result()
	if err != nil {
		return 0, err
	}
	total := int64(0)
	for k, v := range sizes {
		if k == except {
			continue
		}
		var n int64
		if _, err := fmt.Sscan(v, &n); err == nil {
			total += n
		}
	}
	return total, nil
}

// Compile-time interface check.
var _ domain.KV = (*Store)(nil)
