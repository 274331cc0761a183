package persist

import (
	"context"
	"log/slog"
	"time"
)

// Flusher decouples persistence from the mutation hot path: mutations call
// Kick, a single writer goroutine debounces bursts and runs the save
// function off-path. Save errors never reach the mutating caller; the save
// function itself logs and degrades per aggregate.
type Flusher struct {
	save     func(ctx context.Context)
	kick     chan struct{}
	debounce time.Duration
	logger   *slog.Logger
}

// NewFlusher creates a Flusher around the given save function. debounce <= 0
// selects 200ms.
func NewFlusher(save func(ctx context.Context), debounce time.Duration, logger *slog.Logger) *Flusher {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Flusher{
		save:     save,
		kick:     make(chan struct{}, 1),
		debounce: debounce,
		logger:   logger.With(slog.String("component", "flusher")),
	}
}

// Kick marks the state dirty. Never blocks; a pending kick absorbs
// subsequent ones.
func (f *Flusher) Kick() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Run is the single-writer save loop. It blocks until ctx is cancelled,
// performing one final save on the way out so a clean shutdown persists the
// latest state.
func (f *Flusher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Final flush with a short independent deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			f.save(flushCtx)
			cancel()
			f.logger.Info("flusher stopped")
			return nil

		case <-f.kick:
			// Absorb the burst before saving.
			timer := time.NewTimer(f.debounce)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				continue
			}
			f.save(ctx)
		}
	}
}
