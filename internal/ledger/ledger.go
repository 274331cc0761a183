// Package ledger implements the balance and experience bookkeeping for
// users. Mutations are clamped, never rejected: a debit larger than the
// current balance floors at zero. Level is a pure function of cumulative
// experience; crossing a level threshold grants a coin bonus.
package ledger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/questlab/engagehub/internal/domain"
)

// ExperienceResult describes the outcome of an experience mutation.
type ExperienceResult struct {
	User         domain.User
	LevelsGained int
	Bonus        int64
}

// Ledger holds the user table. All mutations are serialized by a single
// mutex. Unknown users are created on first mutation with a zero balance at
// level 1; reads of unknown users return domain.ErrNotFound.
type Ledger struct {
	mu    sync.Mutex
	users map[string]domain.User

	audit  domain.AuditStore
	logger *slog.Logger
}

// New creates an empty Ledger. audit may be nil to disable the audit trail.
func New(audit domain.AuditStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		users:  make(map[string]domain.User),
		audit:  audit,
		logger: logger.With(slog.String("component", "ledger")),
	}
}

// Replace swaps the whole user table, used when restoring persisted state.
func (l *Ledger) Replace(users []domain.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = make(map[string]domain.User, len(users))
	for _, u := range users {
		l.users[u.ID] = u
	}
}

// Users returns a copy of the user table for persistence.
func (l *Ledger) Users() []domain.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.User, 0, len(l.users))
	for _, u := range l.users {
		out = append(out, u)
	}
	return out
}

// Get returns one user. Unknown ids return domain.ErrNotFound.
func (l *Ledger) Get(userID string) (domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

// Balance returns one user's balance. Unknown ids return domain.ErrNotFound.
func (l *Ledger) Balance(userID string) (int64, error) {
	u, err := l.Get(userID)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

// Name returns a display name for the user, falling back to the id when the
// user is unknown or unnamed.
func (l *Ledger) Name(userID string) string {
	u, err := l.Get(userID)
	if err != nil || u.Name == "" {
		return userID
	}
	return u.Name
}

// Credit adds amount to the user's balance and returns the updated user.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64) (domain.User, error) {
	return l.applyDelta(ctx, userID, amount, "ledger.credit")
}

// Debit subtracts amount from the user's balance, flooring at zero, and
// returns the updated user. Debits are never rejected.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int64) (domain.User, error) {
	return l.applyDelta(ctx, userID, -amount, "ledger.debit")
}

// ApplyDelta adds a signed delta to the user's balance, flooring at zero.
func (l *Ledger) ApplyDelta(ctx context.Context, userID string, delta int64) (domain.User, error) {
	event := "ledger.credit"
	if delta < 0 {
		event = "ledger.debit"
	}
	return l.applyDelta(ctx, userID, delta, event)
}

func (l *Ledger) applyDelta(ctx context.Context, userID string, delta int64, event string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrInvalidInput
	}

	l.mu.Lock()
	u := l.ensureLocked(userID)
	before := u.Balance
	u.Balance += delta
	if u.Balance < 0 {
		u.Balance = 0
	}
	l.users[userID] = u
	l.mu.Unlock()

	l.record(ctx, event, map[string]any{
		"user_id": userID,
		"delta":   delta,
		"before":  before,
		"after":   u.Balance,
	})
	return u, nil
}

// AddExperience adds amount to the user's experience, flooring at zero, and
// rederives the level. Gained levels grant a bonus credit of
// domain.LevelUpBonus per level, applied before returning; the caller emits
// the level-up notification from the returned result.
func (l *Ledger) AddExperience(ctx context.Context, userID string, amount int64) (ExperienceResult, error) {
	if userID == "" {
		return ExperienceResult{}, domain.ErrInvalidInput
	}

	l.mu.Lock()
	u := l.ensureLocked(userID)
	before := u.Experience
	u.Experience += amount
	if u.Experience < 0 {
		u.Experience = 0
	}

	oldLevel := u.Level
	gained := domain.LevelForExperience(u.Experience) - domain.LevelForExperience(before)
	if gained < 0 {
		// Level never decreases even if experience is clawed back.
		gained = 0
	}
	u.Level += gained

	var bonus int64
	if gained > 0 {
		bonus = domain.LevelUpBonus * int64(gained)
		u.Balance += bonus
	}
	l.users[userID] = u
	l.mu.Unlock()

	l.record(ctx, "ledger.experience", map[string]any{
		"user_id":       userID,
		"delta":         amount,
		"before":        before,
		"after":         u.Experience,
		"level_before":  oldLevel,
		"level_after":   u.Level,
		"levels_gained": gained,
		"bonus":         bonus,
	})

	return ExperienceResult{User: u, LevelsGained: gained, Bonus: bonus}, nil
}

// ensureLocked returns the user, creating it at level 1 if absent. Caller
// must hold the mutex.
func (l *Ledger) ensureLocked(userID string) domain.User {
	u, ok := l.users[userID]
	if !ok {
		u = domain.User{ID: userID, Level: 1}
	}
	return u
}

// record appends an audit entry. Audit failures are logged and swallowed.
func (l *Ledger) record(ctx context.Context, event string, detail map[string]any) {
	if l.audit == nil {
		return
	}
	if err := l.audit.Log(ctx, event, detail); err != nil {
		l.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
