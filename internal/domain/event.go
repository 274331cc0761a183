package domain

// EventKind discriminates the Event union.
type EventKind string

const (
	KindAchievementUnlocked EventKind = "achievement_unlocked"
	KindTaskAssigned        EventKind = "task_assigned"
	KindTaskCompleted       EventKind = "task_completed"
	KindItemListed          EventKind = "item_listed"
	KindItemOnSale          EventKind = "item_on_sale"
	KindOrderDecided        EventKind = "order_decided"
	KindCaseListed          EventKind = "case_listed"
	KindCaseOpened          EventKind = "case_opened"
	KindLevelUp             EventKind = "level_up"
	KindBattleChallenge     EventKind = "battle_challenge"
	KindBattleAccepted      EventKind = "battle_accepted"
	KindBattleDeclined      EventKind = "battle_declined"
	KindBattleWon           EventKind = "battle_won"
	KindBattleLost          EventKind = "battle_lost"
	KindBattleSettled       EventKind = "battle_settled"
	KindInsufficientFunds   EventKind = "insufficient_funds"
	KindDailyMotivation     EventKind = "daily_motivation"
	KindWelcome             EventKind = "welcome"
)

// Event is a typed fact derived either from comparing two snapshots of an
// entity collection or from a ledger/battle mutation. Each variant carries
// the full payload the notification synthesizer needs; no variant holds
// references into mutable state.
type Event interface {
	// Kind returns the discriminator for this event variant.
	Kind() EventKind
}

// AchievementUnlocked fires when an achievement's unlocked flag transitions
// from false to true.
type AchievementUnlocked struct {
	Achievement Achievement
}

func (AchievementUnlocked) Kind() EventKind { return KindAchievementUnlocked }

// TaskAssigned fires when a task appears that had no prior counterpart.
type TaskAssigned struct {
	Task Task
}

func (TaskAssigned) Kind() EventKind { return KindTaskAssigned }

// TaskCompleted fires when a task's completed flag transitions from false to
// true.
type TaskCompleted struct {
	Task Task
}

func (TaskCompleted) Kind() EventKind { return KindTaskCompleted }

// ItemListed fires when a shop item appears for the first time.
type ItemListed struct {
	Item ShopItem
}

func (ItemListed) Kind() EventKind { return KindItemListed }

// ItemOnSale fires when a sale price is introduced or changed on an existing
// item. OldPrice is the effective price before the change, kept for display.
type ItemOnSale struct {
	Item     ShopItem
	OldPrice int64
}

func (ItemOnSale) Kind() EventKind { return KindItemOnSale }

// OrderDecided fires when an order's status changes to approved or rejected.
type OrderDecided struct {
	Order Order
}

func (OrderDecided) Kind() EventKind { return KindOrderDecided }

// CaseListed fires when a new case type appears in the catalog.
type CaseListed struct {
	Case CaseType
}

func (CaseListed) Kind() EventKind { return KindCaseListed }

// CaseOpened fires when a user case appears already carrying a resolved
// prize.
type CaseOpened struct {
	UserCase UserCase
}

func (CaseOpened) Kind() EventKind { return KindCaseOpened }

// LevelUp fires when an experience mutation advances a user by one or more
// levels. Bonus is the coin credit granted for the gain.
type LevelUp struct {
	UserID       string
	UserName     string
	Level        int
	LevelsGained int
	Bonus        int64
}

func (LevelUp) Kind() EventKind { return KindLevelUp }

// BattleChallenge fires toward the opponent when an invitation is created.
type BattleChallenge struct {
	Invitation     BattleInvitation
	ChallengerName string
}

func (BattleChallenge) Kind() EventKind { return KindBattleChallenge }

// BattleAccepted fires toward the challenger when an invitation is accepted
// and the battle starts.
type BattleAccepted struct {
	Battle       Battle
	OpponentName string
}

func (BattleAccepted) Kind() EventKind { return KindBattleAccepted }

// BattleDeclined fires toward the challenger when an invitation is declined,
// either explicitly or automatically on re-validation failure. Reason is
// empty for an explicit decline.
type BattleDeclined struct {
	Invitation   BattleInvitation
	OpponentName string
	Reason       string
}

func (BattleDeclined) Kind() EventKind { return KindBattleDeclined }

// BattleWon fires toward the winner on settlement.
type BattleWon struct {
	Battle    Battle
	LoserName string
}

func (BattleWon) Kind() EventKind { return KindBattleWon }

// BattleLost fires toward the loser on settlement.
type BattleLost struct {
	Battle     Battle
	WinnerName string
}

func (BattleLost) Kind() EventKind { return KindBattleLost }

// BattleSettled fires for third-party observers on settlement.
type BattleSettled struct {
	Battle     Battle
	WinnerName string
	LoserName  string
}

func (BattleSettled) Kind() EventKind { return KindBattleSettled }

// InsufficientFunds fires when a ledger precondition blocks an operation.
// It is surfaced to the user exclusively as an error-typed notification.
type InsufficientFunds struct {
	UserID   string
	UserName string
	Action   string
	Need     int64
	Have     int64
}

func (InsufficientFunds) Kind() EventKind { return KindInsufficientFunds }

// DailyMotivation is the once-per-day cosmetic ping.
type DailyMotivation struct {
	Message string
}

func (DailyMotivation) Kind() EventKind { return KindDailyMotivation }

// Welcome is the one-shot first-session greeting.
type Welcome struct{}

func (Welcome) Kind() EventKind { return KindWelcome }
