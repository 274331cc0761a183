package domain

import "time"

// InvitationTTL is how long a pending invitation remains valid. The deadline
// is advisory metadata: nothing transitions pending invitations to expired
// automatically, callers may enforce it if they choose.
const InvitationTTL = 24 * time.Hour

// InvitationStatus is the lifecycle state of a battle invitation. A pending
// invitation transitions to exactly one terminal status and is never
// resurrected.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// BattleStatus is the lifecycle state of a battle.
type BattleStatus string

const (
	BattleActive    BattleStatus = "active"
	BattleCompleted BattleStatus = "completed"
	BattleCancelled BattleStatus = "cancelled"
)

// BattleInvitation is a stake-backed challenge from one user to another.
type BattleInvitation struct {
	ID           string           `json:"id"`
	ChallengerID string           `json:"challenger_id"`
	OpponentID   string           `json:"opponent_id"`
	Stake        int64            `json:"stake"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// Battle is a wager created from an accepted invitation. Stake is fixed at
// creation and drives the ledger settlement on completion.
type Battle struct {
	ID           string       `json:"id"`
	ChallengerID string       `json:"challenger_id"`
	OpponentID   string       `json:"opponent_id"`
	Stake        int64        `json:"stake"`
	Status       BattleStatus `json:"status"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	WinnerID     string       `json:"winner_id,omitempty"`
	LoserID      string       `json:"loser_id,omitempty"`
}
