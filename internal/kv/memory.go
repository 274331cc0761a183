// Package kv provides an in-memory implementation of the size-bounded
// key/value store. It is the default backend for single-process runs and the
// workhorse of the persistence tests; the redis sub-package provides the
// shared-backend implementation with the same quota semantics.
package kv

import (
	"context"
	"sync"

	"github.com/questlab/engagehub/internal/domain"
)

// Memory is an in-memory domain.KV with a total byte quota across all keys.
// A zero quota means unbounded.
type Memory struct {
	mu    sync.Mutex
	docs  map[string][]byte
	quota int64
}

// NewMemory creates a Memory store with the given byte quota.
func NewMemory(quota int64) *Memory {
	return &Memory{
		docs:  make(map[string][]byte),
		quota: quota,
	}
}

// Set stores value under key. If the write would push the total stored size
// over the quota, nothing is written and domain.ErrQuotaExceeded is
// returned.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		total := int64(0)
		for k, v := range m.docs {
			if k == key {
				continue
			}
			total += int64(len(v))
		}
		if total+int64(len(value)) > m.quota {
			return domain.ErrQuotaExceeded
		}
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	m.docs[key] = buf
	return nil
}

// Get returns the value stored under key, or domain.ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.docs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

// Keys returns all stored keys.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.docs))
	for k := range m.docs {
		out = append(out, k)
	}
	return out, nil
}

// UsedBytes returns the total stored size across all keys.
func (m *Memory) UsedBytes(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := int64(0)
	for _, v := range m.docs {
		total += int64(len(v))
	}
	return total, nil
}

// Compile-time interface check.
var _ domain.KV = (*Memory)(nil)
