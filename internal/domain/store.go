package domain

import (
	"context"
	"time"
)

// KV is a size-bounded key/value document store. Each key holds one
// self-contained serialized document; the store enforces a total byte quota
// across all keys and rejects writes that would exceed it with
// ErrQuotaExceeded. Get returns ErrNotFound for absent keys. Delete of an
// absent key is not an error.
type KV interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	UsedBytes(ctx context.Context) (int64, error)
}

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of ledger mutations and
// battle settlements. Writes are best effort: callers log failures and move
// on.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Archiver receives records that the quota ladder is about to discard so
// they can be copied to cold storage first. Implementations must not block
// the caller on upload failures.
type Archiver interface {
	Archive(ctx context.Context, kind string, records any) error
}
