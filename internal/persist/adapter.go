// Package persist implements quota-aware persistence of the engine's state
// to a size-bounded key/value store. Every save has a defined fallback
// ladder (trim, trim further, drop the key) and degrades to "not persisted
// this revision" rather than surfacing an error: a persistence failure never
// interrupts the calling operation, the in-memory state stays authoritative.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"github.com/questlab/engagehub/internal/battle"
	"github.com/questlab/engagehub/internal/domain"
)

// Logical keys of the persisted aggregates. Each key holds one independent
// JSON document; the storage layer enforces no cross-key integrity.
const (
	KeyNotifications = "notifications"
	KeyCases         = "cases"
	KeyUserCases     = "userCases"
	KeyUsers         = "users"
	KeyBattles       = "personalBattles"

	FlagTheme           = "theme"
	FlagWelcomeShown    = "hasWelcomeNotification"
	FlagDailyMotivation = "lastDailyMotivation"
)

const (
	// notificationCap is how many of the newest notifications are persisted;
	// notificationCapFallback is retried after a quota failure.
	notificationCap         = 100
	notificationCapFallback = 50

	// userCasesMaxBytes triggers proactive truncation of the user-case
	// document before the first save attempt.
	userCasesMaxBytes = 2 << 20

	userCasesTrim     = 50
	userCasesTrimHard = 20
)

// Adapter saves and loads each aggregate against a domain.KV. archiver may
// be nil; when set, entries the quota ladder is about to discard are handed
// to it first (fire and forget).
type Adapter struct {
	kv       domain.KV
	archiver domain.Archiver
	logger   *slog.Logger
}

// New creates an Adapter.
func New(kv domain.KV, archiver domain.Archiver, logger *slog.Logger) *Adapter {
	return &Adapter{
		kv:       kv,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "persist")),
	}
}

// SaveNotifications persists the newest notificationCap entries of the feed
// (which is ordered newest first). On quota failure it retries with
// notificationCapFallback entries; on a second failure the key is dropped
// and restored empty on next load. Trimmed entries are archived when an
// archiver is configured. Failures are logged, never returned.
func (a *Adapter) SaveNotifications(ctx context.Context, feed []domain.Notification) {
	primary := feed
	if len(primary) > notificationCap {
		a.archive(ctx, "notifications", feed[notificationCap:])
		primary = feed[:notificationCap]
	}

	if a.trySave(ctx, KeyNotifications, primary) {
		return
	}

	fallback := primary
	if len(fallback) > notificationCapFallback {
		a.archive(ctx, "notifications", fallback[notificationCapFallback:])
		fallback = fallback[:notificationCapFallback]
	}
	if a.trySave(ctx, KeyNotifications, fallback) {
		a.logger.WarnContext(ctx, "notifications persisted at reduced cap",
			slog.Int("kept", len(fallback)))
		return
	}

	a.drop(ctx, KeyNotifications)
}

// LoadNotifications restores the persisted feed. Missing or corrupt
// documents yield an empty feed.
func (a *Adapter) LoadNotifications(ctx context.Context) []domain.Notification {
	var feed []domain.Notification
	a.load(ctx, KeyNotifications, &feed)
	return feed
}

// SaveCases persists the case catalog with inline image payloads stripped to
// bound the document size. On failure the key is dropped; the next load
// falls back to the built-in default catalog.
func (a *Adapter) SaveCases(ctx context.Context, cases []domain.CaseType) {
	stripped := make([]domain.CaseType, len(cases))
	for i, c := range cases {
		c.Image = nil
		stripped[i] = c
	}

	if a.trySave(ctx, KeyCases, stripped) {
		return
	}
	a.drop(ctx, KeyCases)
}

// LoadCases restores the persisted case catalog, falling back to the
// built-in default catalog when the key is missing or corrupt.
func (a *Adapter) LoadCases(ctx context.Context) []domain.CaseType {
	var cases []domain.CaseType
	if !a.load(ctx, KeyCases, &cases) || len(cases) == 0 {
		return domain.DefaultCaseCatalog()
	}
	return cases
}

// SaveUserCases persists the user-case history. Documents over
// userCasesMaxBytes are truncated to the most recent userCasesTrim entries
// before the first attempt; quota failures truncate further to
// userCasesTrimHard, then drop the key. Truncated entries are archived.
func (a *Adapter) SaveUserCases(ctx context.Context, cases []domain.UserCase) {
	ordered := sortUserCasesNewestFirst(cases)

	payload, err := json.Marshal(ordered)
	if err != nil {
		a.logger.ErrorContext(ctx, "marshal user cases", slog.String("error", err.Error()))
		return
	}
	if len(payload) > userCasesMaxBytes && len(ordered) > userCasesTrim {
		a.archive(ctx, "userCases", ordered[userCasesTrim:])
		ordered = ordered[:userCasesTrim]
	}

	if a.trySave(ctx, KeyUserCases, ordered) {
		return
	}

	if len(ordered) > userCasesTrimHard {
		a.archive(ctx, "userCases", ordered[userCasesTrimHard:])
		ordered = ordered[:userCasesTrimHard]
	}
	if a.trySave(ctx, KeyUserCases, ordered) {
		a.logger.WarnContext(ctx, "user cases persisted at reduced cap",
			slog.Int("kept", len(ordered)))
		return
	}

	a.drop(ctx, KeyUserCases)
}

// LoadUserCases restores the persisted user-case history.
func (a *Adapter) LoadUserCases(ctx context.Context) []domain.UserCase {
	var cases []domain.UserCase
	a.load(ctx, KeyUserCases, &cases)
	return cases
}

// SaveUsers persists the whole user table with no trimming. On failure the
// revision is skipped; the in-memory ledger remains authoritative until the
// next successful save.
func (a *Adapter) SaveUsers(ctx context.Context, users []domain.User) {
	if a.trySave(ctx, KeyUsers, users) {
		return
	}
	a.logger.WarnContext(ctx, "users not persisted this revision")
}

// LoadUsers restores the persisted user table.
func (a *Adapter) LoadUsers(ctx context.Context) []domain.User {
	var users []domain.User
	a.load(ctx, KeyUsers, &users)
	return users
}

// SaveBattles persists the battle subsystem state whole. On failure the
// revision is skipped.
func (a *Adapter) SaveBattles(ctx context.Context, st battle.State) {
	if a.trySave(ctx, KeyBattles, st) {
		return
	}
	a.logger.WarnContext(ctx, "battles not persisted this revision")
}

// LoadBattles restores the battle subsystem state.
func (a *Adapter) LoadBattles(ctx context.Context) battle.State {
	var st battle.State
	a.load(ctx, KeyBattles, &st)
	return st
}

// Flag returns the raw string value of a flag key, with ok=false when the
// flag is unset.
func (a *Adapter) Flag(ctx context.Context, name string) (string, bool) {
	data, err := a.kv.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.WarnContext(ctx, "flag read failed",
				slog.String("flag", name), slog.String("error", err.Error()))
		}
		return "", false
	}
	return string(data), true
}

// SetFlag stores a flag value. Failures are logged and swallowed.
func (a *Adapter) SetFlag(ctx context.Context, name, value string) {
	if err := a.kv.Set(ctx, name, []byte(value)); err != nil {
		a.logger.WarnContext(ctx, "flag write failed",
			slog.String("flag", name), slog.String("error", err.Error()))
	}
}

// trySave marshals v and writes it under key, reporting success. Quota
// failures are logged at debug level (the caller decides the fallback);
// other failures at warn.
func (a *Adapter) trySave(ctx context.Context, key string, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		a.logger.ErrorContext(ctx, "marshal aggregate",
			slog.String("key", key), slog.String("error", err.Error()))
		return false
	}

	if err := a.kv.Set(ctx, key, payload); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrQuotaExceeded) {
			level = slog.LevelDebug
		}
		a.logger.Log(ctx, level, "save failed",
			slog.String("key", key),
			slog.Int("bytes", len(payload)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// load reads and unmarshals key into v, reporting whether a usable document
// was found. Corrupt documents are logged and treated as absent.
func (a *Adapter) load(ctx context.Context, key string, v any) bool {
	data, err := a.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.WarnContext(ctx, "load failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		a.logger.WarnContext(ctx, "corrupt persisted document, treating as empty",
			slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// drop removes a key after the fallback ladder is exhausted. The aggregate
// restores to its empty/default form on next load.
func (a *Adapter) drop(ctx context.Context, key string) {
	if err := a.kv.Delete(ctx, key); err != nil {
		a.logger.WarnContext(ctx, "drop failed",
			slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	a.logger.WarnContext(ctx, "aggregate dropped after quota fallback",
		slog.String("key", key))
}

// archive hands records to the cold-storage archiver, if any. Never blocks
// the save path on archive errors.
func (a *Adapter) archive(ctx context.Context, kind string, records any) {
	if a.archiver == nil {
		return
	}
	if err := a.archiver.Archive(ctx, kind, records); err != nil {
		a.logger.WarnContext(ctx, "archive failed",
			slog.String("kind", kind), slog.String("error", err.Error()))
	}
}

// sortUserCasesNewestFirst orders user cases by opening time, newest first,
// unopened cases last, without mutating the input.
func sortUserCasesNewestFirst(cases []domain.UserCase) []domain.UserCase {
	out := make([]domain.UserCase, len(cases))
	copy(out, cases)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].OpenedAt, out[j].OpenedAt
		switch {
		case oi == nil:
			return false
		case oj == nil:
			return true
		default:
			return oi.After(*oj)
		}
	})
	return out
}
