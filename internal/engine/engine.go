// Package engine wires the engagement core together: collection submissions
// flow through the change detector, detected events are synthesized into
// notifications and appended to the feed, reward hooks credit the ledger,
// and every mutation marks the persisted state dirty for the background
// flusher. The engine is the single application-context object: constructed
// once at session start, passed by injection, torn down at session end.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/questlab/engagehub/internal/battle"
	"github.com/questlab/engagehub/internal/detect"
	"github.com/questlab/engagehub/internal/domain"
	"github.com/questlab/engagehub/internal/ledger"
	"github.com/questlab/engagehub/internal/notify"
	"github.com/questlab/engagehub/internal/persist"
	"github.com/questlab/engagehub/internal/store/memory"
)

// Engine owns the in-memory stores and coordinates detection, synthesis,
// notification dispatch, the wager ledger, and persistence.
type Engine struct {
	notifications *memory.NotificationStore
	ledger        *ledger.Ledger
	battles       *battle.Service
	adapter       *persist.Adapter
	flusher       *persist.Flusher
	rewards       *notify.RewardHook
	logger        *slog.Logger

	achievements memory.Snapshot[domain.Achievement]
	tasks        memory.Snapshot[domain.Task]
	shopItems    memory.Snapshot[domain.ShopItem]
	orders       memory.Snapshot[domain.Order]
	cases        memory.Snapshot[domain.CaseType]
	userCases    memory.Snapshot[domain.UserCase]

	broadcast func([]domain.Notification)

	motivation string
	now        func() time.Time
}

// Config holds the engine's construction parameters.
type Config struct {
	// OwnerID is the user credited for rewards that carry no user of their
	// own (achievement unlocks, unassigned tasks).
	OwnerID string

	// MotivationMessage is the body of the daily motivation ping. Empty
	// disables the ping.
	MotivationMessage string

	// FlushDebounce is the persistence debounce window.
	FlushDebounce time.Duration
}

// New creates an Engine. audit and archiver may be nil; broadcast may be nil
// when no push channel is attached.
func New(
	cfg Config,
	kv domain.KV,
	audit domain.AuditStore,
	archiver domain.Archiver,
	broadcast func([]domain.Notification),
	logger *slog.Logger,
) *Engine {
	e := &Engine{
		notifications: memory.NewNotificationStore(),
		adapter:       persist.New(kv, archiver, logger),
		broadcast:     broadcast,
		motivation:    cfg.MotivationMessage,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "engine")),
	}

	e.ledger = ledger.New(audit, logger)
	e.battles = battle.NewService(e.ledger, e.Publish, audit, logger)
	e.rewards = notify.NewRewardHook(e.ledger, cfg.OwnerID, logger)
	e.flusher = persist.NewFlusher(e.saveAll, cfg.FlushDebounce, logger)

	e.notifications.SetOnChange(func() {
		e.flusher.Kick()
		if e.broadcast != nil {
			e.broadcast(e.notifications.List())
		}
	})

	return e
}

// Start restores persisted state and emits the one-shot welcome
// notification on first session. Load failures degrade to empty or default
// state and never abort startup.
func (e *Engine) Start(ctx context.Context) {
	e.notifications.Replace(e.adapter.LoadNotifications(ctx))
	e.cases.Swap(e.adapter.LoadCases(ctx))
	e.userCases.Swap(e.adapter.LoadUserCases(ctx))
	e.ledger.Replace(e.adapter.LoadUsers(ctx))
	e.battles.Restore(e.adapter.LoadBattles(ctx))

	if _, ok := e.adapter.Flag(ctx, persist.FlagWelcomeShown); !ok {
		e.Publish(domain.Welcome{})
		e.adapter.SetFlag(ctx, persist.FlagWelcomeShown, "true")
	}

	e.logger.InfoContext(ctx, "engine started",
		slog.Int("notifications", len(e.notifications.List())),
		slog.Int("users", len(e.ledger.Users())),
	)
}

// RunFlusher runs the background persistence loop until ctx is cancelled.
func (e *Engine) RunFlusher(ctx context.Context) error {
	return e.flusher.Run(ctx)
}

// RunMotivation emits the low-priority daily motivation ping once per
// calendar day, gated on the persisted last-sent flag. It blocks until ctx
// is cancelled. A disabled message returns immediately.
func (e *Engine) RunMotivation(ctx context.Context) error {
	if e.motivation == "" {
		return nil
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	e.maybeMotivate(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.maybeMotivate(ctx)
		}
	}
}

func (e *Engine) maybeMotivate(ctx context.Context) {
	today := e.now().UTC().Format("2006-01-02")
	if last, ok := e.adapter.Flag(ctx, persist.FlagDailyMotivation); ok && last == today {
		return
	}
	e.Publish(domain.DailyMotivation{Message: e.motivation})
	e.adapter.SetFlag(ctx, persist.FlagDailyMotivation, today)
}

// Publish synthesizes and appends a notification for a domain event,
// returning the stored entry.
func (e *Engine) Publish(ev domain.Event) domain.Notification {
	return e.notifications.Add(notify.Synthesize(ev))
}

// Flush persists all aggregates synchronously. Used at shutdown and in
// tests; normal operation goes through the debounced flusher.
func (e *Engine) Flush(ctx context.Context) {
	e.saveAll(ctx)
}

// saveAll persists every aggregate through its quota ladder. Each save
// degrades independently.
func (e *Engine) saveAll(ctx context.Context) {
	e.adapter.SaveNotifications(ctx, e.notifications.List())
	e.adapter.SaveCases(ctx, e.cases.Items())
	e.adapter.SaveUserCases(ctx, e.userCases.Items())
	e.adapter.SaveUsers(ctx, e.ledger.Users())
	e.adapter.SaveBattles(ctx, e.battles.Snapshot())
}

// process runs the shared post-detection pipeline: synthesis, enqueue, and
// the reward hook.
func (e *Engine) process(ctx context.Context, events []domain.Event) {
	for _, ev := range events {
		e.notifications.Add(notify.Synthesize(ev))
		e.rewards.Apply(ctx, ev)
	}
	if len(events) > 0 {
		e.flusher.Kick()
	}
}

// SubmitAchievements commits a new achievements collection. With seed set,
// the snapshot is replaced without detection (used to initialize a session
// without replaying history).
func (e *Engine) SubmitAchievements(ctx context.Context, cur []domain.Achievement, seed bool) {
	prev := e.achievements.Swap(cur)
	if seed {
		return
	}
	e.process(ctx, detect.Achievements(prev, cur))
}

// SubmitTasks commits a new tasks collection.
func (e *Engine) SubmitTasks(ctx context.Context, cur []domain.Task, seed bool) {
	prev := e.tasks.Swap(cur)
	if seed {
		return
	}
	e.process(ctx, detect.Tasks(prev, cur))
}

// SubmitShopItems commits a new shop catalog.
func (e *Engine) SubmitShopItems(ctx context.Context, cur []domain.ShopItem, seed bool) {
	prev := e.shopItems.Swap(cur)
	if seed {
		return
	}
	e.process(ctx, detect.ShopItems(prev, cur))
}

// SubmitOrders commits a new orders collection.
func (e *Engine) SubmitOrders(ctx context.Context, cur []domain.Order, seed bool) {
	prev := e.orders.Swap(cur)
	if seed {
		return
	}
	e.process(ctx, detect.Orders(prev, cur))
}

// SubmitCases commits a new case catalog.
func (e *Engine) SubmitCases(ctx context.Context, cur []domain.CaseType, seed bool) {
	prev := e.cases.Swap(cur)
	if seed {
		return
	}
	e.process(ctx, detect.Cases(prev, cur))
}

// SubmitUserCases commits a new user-case collection.
func (e *Engine) SubmitUserCases(ctx context.Context, cur []domain.UserCase, seed bool) {
	prev := e.userCases.Swap(cur)
	if seed {
		return
	}
	e.process(ctx, detect.UserCases(prev, cur))
}

// Notifications returns the feed, newest first.
func (e *Engine) Notifications() []domain.Notification {
	return e.notifications.List()
}

// AddNotification enqueues a caller-built notification.
func (e *Engine) AddNotification(input domain.NotificationInput) domain.Notification {
	return e.notifications.Add(input)
}

// MarkNotificationRead flips one entry's read flag. Absent ids are no-ops.
func (e *Engine) MarkNotificationRead(id string) {
	e.notifications.MarkRead(id)
}

// MarkAllNotificationsRead flips every entry's read flag.
func (e *Engine) MarkAllNotificationsRead() {
	e.notifications.MarkAllRead()
}

// RemoveNotification deletes one entry. Absent ids are no-ops.
func (e *Engine) RemoveNotification(id string) {
	e.notifications.Remove(id)
}

// ClearAllNotifications empties the feed.
func (e *Engine) ClearAllNotifications() {
	e.notifications.Clear()
}

// GetUser returns the ledger entry for one user.
func (e *Engine) GetUser(userID string) (domain.User, error) {
	return e.ledger.Get(userID)
}

// GetUserBalance returns one user's balance.
func (e *Engine) GetUserBalance(userID string) (int64, error) {
	return e.ledger.Balance(userID)
}

// UpdateUserBalance applies a signed delta to a user's balance, clamped at
// zero.
func (e *Engine) UpdateUserBalance(ctx context.Context, userID string, delta int64) (domain.User, error) {
	u, err := e.ledger.ApplyDelta(ctx, userID, delta)
	if err == nil {
		e.flusher.Kick()
	}
	return u, err
}

// UpdateUserExperience applies a signed delta to a user's experience. Level
// gains grant the coin bonus and push a level-up notification.
func (e *Engine) UpdateUserExperience(ctx context.Context, userID string, delta int64) (domain.User, error) {
	res, err := e.ledger.AddExperience(ctx, userID, delta)
	if err != nil {
		return domain.User{}, err
	}
	if res.LevelsGained > 0 {
		e.Publish(domain.LevelUp{
			UserID:       userID,
			UserName:     e.ledger.Name(userID),
			Level:        res.User.Level,
			LevelsGained: res.LevelsGained,
			Bonus:        res.Bonus,
		})
	}
	e.flusher.Kick()
	return res.User, nil
}

// CreateBattleInvitation issues a stake-backed challenge. A failed balance
// precondition pushes an error notification and returns a nil invitation.
func (e *Engine) CreateBattleInvitation(ctx context.Context, challengerID, opponentID string, stake int64) (*domain.BattleInvitation, error) {
	inv, err := e.battles.CreateInvitation(ctx, challengerID, opponentID, stake)
	e.flusher.Kick()
	return inv, err
}

// AcceptBattleInvitation accepts a pending invitation, starting a battle
// when both balances still cover the stake.
func (e *Engine) AcceptBattleInvitation(ctx context.Context, id string) (*domain.Battle, error) {
	b, err := e.battles.AcceptInvitation(ctx, id)
	e.flusher.Kick()
	return b, err
}

// DeclineBattleInvitation declines a pending invitation.
func (e *Engine) DeclineBattleInvitation(ctx context.Context, id string) error {
	err := e.battles.DeclineInvitation(ctx, id)
	e.flusher.Kick()
	return err
}

// CompleteBattle settles an active battle in favor of winnerID. callerID
// selects the settlement notification variant.
func (e *Engine) CompleteBattle(ctx context.Context, id, winnerID, callerID string) error {
	err := e.battles.CompleteBattle(ctx, id, winnerID, callerID)
	e.flusher.Kick()
	return err
}

// CancelBattle voids an active battle without settlement.
func (e *Engine) CancelBattle(ctx context.Context, id string) error {
	err := e.battles.CancelBattle(ctx, id)
	e.flusher.Kick()
	return err
}

// BattleState returns the current invitations and battles.
func (e *Engine) BattleState() battle.State {
	return e.battles.Snapshot()
}

// Flag reads a persisted UI flag (theme and friends).
func (e *Engine) Flag(ctx context.Context, name string) (string, bool) {
	return e.adapter.Flag(ctx, name)
}

// SetFlag stores a persisted UI flag.
func (e *Engine) SetFlag(ctx context.Context, name, value string) {
	e.adapter.SetFlag(ctx, name, value)
}
