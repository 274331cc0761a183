package persist

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultHighWaterBytes is the occupancy threshold above which the startup
// monitor proactively clears stale keys before normal load proceeds.
const DefaultHighWaterBytes = 8 << 20

// defaultStalePrefixes are key prefixes known to hold temporary or
// legacy data that is safe to clear under storage pressure.
var defaultStalePrefixes = []string{"tmp:", "cache:", "legacy:"}

// Monitor inspects total storage occupancy at startup and clears stale keys
// when it exceeds the high-water mark.
type Monitor struct {
	kv            kvInspector
	highWater     int64
	stalePrefixes []string
	logger        *slog.Logger
}

type kvInspector interface {
	Keys(ctx context.Context) ([]string, error)
	UsedBytes(ctx context.Context) (int64, error)
	Delete(ctx context.Context, key string) error
}

// NewMonitor creates a Monitor. highWater <= 0 selects
// DefaultHighWaterBytes; nil stalePrefixes selects the defaults.
func NewMonitor(kv kvInspector, highWater int64, stalePrefixes []string, logger *slog.Logger) *Monitor {
	if highWater <= 0 {
		highWater = DefaultHighWaterBytes
	}
	if stalePrefixes == nil {
		stalePrefixes = defaultStalePrefixes
	}
	return &Monitor{
		kv:            kv,
		highWater:     highWater,
		stalePrefixes: stalePrefixes,
		logger:        logger.With(slog.String("component", "persist_monitor")),
	}
}

// Sweep computes total occupancy and, above the high-water mark, deletes all
// keys matching the stale prefixes. Errors are logged and swallowed; the
// sweep is best effort and never blocks startup.
func (m *Monitor) Sweep(ctx context.Context) {
	used, err := m.kv.UsedBytes(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "occupancy check failed", slog.String("error", err.Error()))
		return
	}
	if used <= m.highWater {
		return
	}

	m.logger.WarnContext(ctx, "storage above high-water mark, clearing stale keys",
		slog.Int64("used_bytes", used),
		slog.Int64("high_water_bytes", m.highWater),
	)

	keys, err := m.kv.Keys(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "key listing failed", slog.String("error", err.Error()))
		return
	}

	removed := 0
	for _, key := range keys {
		for _, prefix := range m.stalePrefixes {
			if strings.HasPrefix(key, prefix) {
				if err := m.kv.Delete(ctx, key); err != nil {
					m.logger.WarnContext(ctx, "stale key delete failed",
						slog.String("key", key), slog.String("error", err.Error()))
					break
				}
				removed++
				break
			}
		}
	}

	m.logger.InfoContext(ctx, "stale key sweep finished", slog.Int("removed", removed))
}
