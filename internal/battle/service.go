// Package battle implements the invitation and battle state machine on top
// of the ledger. Invitations move from pending to exactly one terminal
// status; battles are created only from accepted invitations and settle the
// stake on completion. Precondition failures surface as error notifications,
// never as errors to the caller; operations on unknown ids are silent no-ops.
package battle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/questlab/engagehub/internal/domain"
)

// LedgerAPI is the ledger surface the state machine consumes.
type LedgerAPI interface {
	Balance(userID string) (int64, error)
	Name(userID string) string
	Credit(ctx context.Context, userID string, amount int64) (domain.User, error)
	Debit(ctx context.Context, userID string, amount int64) (domain.User, error)
}

// Publisher synthesizes and enqueues a notification for a domain event.
type Publisher func(ev domain.Event) domain.Notification

// State is the serializable form of the battle subsystem, persisted as the
// personal-battles document.
type State struct {
	Invitations []domain.BattleInvitation `json:"invitations"`
	Battles     []domain.Battle           `json:"battles"`
}

// Service owns invitations and battles. All mutations are serialized by a
// single mutex; ledger mutations happen outside of it.
type Service struct {
	mu          sync.Mutex
	invitations map[string]domain.BattleInvitation
	battles     map[string]domain.Battle

	ledger  LedgerAPI
	publish Publisher
	audit   domain.AuditStore
	logger  *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. audit may be nil.
func NewService(ledger LedgerAPI, publish Publisher, audit domain.AuditStore, logger *slog.Logger) *Service {
	return &Service{
		invitations: make(map[string]domain.BattleInvitation),
		battles:     make(map[string]domain.Battle),
		ledger:      ledger,
		publish:     publish,
		audit:       audit,
		logger:      logger.With(slog.String("component", "battle")),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// Restore replaces the in-memory state from a persisted document.
func (s *Service) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations = make(map[string]domain.BattleInvitation, len(st.Invitations))
	for _, inv := range st.Invitations {
		s.invitations[inv.ID] = inv
	}
	s.battles = make(map[string]domain.Battle, len(st.Battles))
	for _, b := range st.Battles {
		s.battles[b.ID] = b
	}
}

// Snapshot returns a copy of the current state for persistence.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Invitations: make([]domain.BattleInvitation, 0, len(s.invitations)),
		Battles:     make([]domain.Battle, 0, len(s.battles)),
	}
	for _, inv := range s.invitations {
		st.Invitations = append(st.Invitations, inv)
	}
	for _, b := range s.battles {
		st.Battles = append(st.Battles, b)
	}
	return st
}

// Invitation returns one invitation by id.
func (s *Service) Invitation(id string) (domain.BattleInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return domain.BattleInvitation{}, domain.ErrNotFound
	}
	return inv, nil
}

// Battle returns one battle by id.
func (s *Service) Battle(id string) (domain.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.battles[id]
	if !ok {
		return domain.Battle{}, domain.ErrNotFound
	}
	return b, nil
}

// CreateInvitation validates that both parties can cover the stake and, on
// success, records a pending invitation expiring in domain.InvitationTTL and
// notifies the opponent. An uncovered stake aborts the creation and pushes
// an error notification instead; no error is returned for that case.
func (s *Service) CreateInvitation(ctx context.Context, challengerID, opponentID string, stake int64) (*domain.BattleInvitation, error) {
	if challengerID == "" || opponentID == "" || challengerID == opponentID || stake <= 0 {
		return nil, domain.ErrInvalidInput
	}

	if short, have, ok := s.checkStake(challengerID, opponentID, stake); !ok {
		s.publish(domain.InsufficientFunds{
			UserID:   short,
			UserName: s.ledger.Name(short),
			Action:   "Battle challenge",
			Need:     stake,
			Have:     have,
		})
		return nil, nil
	}

	now := s.now()
	inv := domain.BattleInvitation{
		ID:           s.newID(),
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		Stake:        stake,
		Status:       domain.InvitationPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.InvitationTTL),
	}

	s.mu.Lock()
	s.invitations[inv.ID] = inv
	s.mu.Unlock()

	s.publish(domain.BattleChallenge{
		Invitation:     inv,
		ChallengerName: s.ledger.Name(challengerID),
	})
	s.record(ctx, "battle.invitation_created", map[string]any{
		"invitation_id": inv.ID,
		"challenger_id": challengerID,
		"opponent_id":   opponentID,
		"stake":         stake,
	})
	return &inv, nil
}

// AcceptInvitation re-validates both balances (they may have changed since
// creation) and, on success, marks the invitation accepted, starts an active
// battle, and notifies the challenger. If either party can no longer cover
// the stake the invitation is declined instead, with an explanatory
// notification. Unknown or non-pending invitations are silent no-ops.
func (s *Service) AcceptInvitation(ctx context.Context, id string) (*domain.Battle, error) {
	s.mu.Lock()
	inv, ok := s.invitations[id]
	if !ok || inv.Status != domain.InvitationPending {
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()

	if short, have, ok := s.checkStake(inv.ChallengerID, inv.OpponentID, inv.Stake); !ok {
		inv.Status = domain.InvitationDeclined
		s.mu.Lock()
		s.invitations[id] = inv
		s.mu.Unlock()

		s.publish(domain.BattleDeclined{
			Invitation:   inv,
			OpponentName: s.ledger.Name(inv.OpponentID),
			Reason:       fmt.Sprintf("%s can no longer cover the %d coin stake (has %d)", s.ledger.Name(short), inv.Stake, have),
		})
		s.record(ctx, "battle.invitation_auto_declined", map[string]any{
			"invitation_id": id,
			"short_user_id": short,
		})
		return nil, nil
	}

	b := domain.Battle{
		ID:           s.newID(),
		ChallengerID: inv.ChallengerID,
		OpponentID:   inv.OpponentID,
		Stake:        inv.Stake,
		Status:       domain.BattleActive,
		StartedAt:    s.now(),
	}

	inv.Status = domain.InvitationAccepted
	s.mu.Lock()
	s.invitations[id] = inv
	s.battles[b.ID] = b
	s.mu.Unlock()

	s.publish(domain.BattleAccepted{
		Battle:       b,
		OpponentName: s.ledger.Name(inv.OpponentID),
	})
	s.record(ctx, "battle.started", map[string]any{
		"invitation_id": id,
		"battle_id":     b.ID,
		"stake":         b.Stake,
	})
	return &b, nil
}

// DeclineInvitation marks a pending invitation declined and notifies the
// challenger. No ledger effect. Unknown or non-pending invitations are
// silent no-ops.
func (s *Service) DeclineInvitation(ctx context.Context, id string) error {
	s.mu.Lock()
	inv, ok := s.invitations[id]
	if !ok || inv.Status != domain.InvitationPending {
		s.mu.Unlock()
		return nil
	}
	inv.Status = domain.InvitationDeclined
	s.invitations[id] = inv
	s.mu.Unlock()

	s.publish(domain.BattleDeclined{
		Invitation:   inv,
		OpponentName: s.ledger.Name(inv.OpponentID),
	})
	s.record(ctx, "battle.invitation_declined", map[string]any{"invitation_id": id})
	return nil
}

// CompleteBattle settles an active battle: the winner is credited the stake,
// the loser is debited it (clamped at zero if their balance dropped in the
// meantime), and the battle is stamped completed. callerID selects which of
// the three settlement notifications is pushed: victory for the winner,
// defeat for the loser, an observer summary otherwise. Unknown or non-active
// battles are silent no-ops.
func (s *Service) CompleteBattle(ctx context.Context, id, winnerID, callerID string) error {
	s.mu.Lock()
	b, ok := s.battles[id]
	if !ok || b.Status != domain.BattleActive {
		s.mu.Unlock()
		return nil
	}
	if winnerID != b.ChallengerID && winnerID != b.OpponentID {
		s.mu.Unlock()
		return domain.ErrInvalidInput
	}

	loserID := b.ChallengerID
	if winnerID == b.ChallengerID {
		loserID = b.OpponentID
	}

	now := s.now()
	b.Status = domain.BattleCompleted
	b.CompletedAt = &now
	b.WinnerID = winnerID
	b.LoserID = loserID
	s.battles[id] = b
	s.mu.Unlock()

	// Credit before debit, matching the reference settlement order.
	if _, err := s.ledger.Credit(ctx, winnerID, b.Stake); err != nil {
		s.logger.WarnContext(ctx, "winner credit failed",
			slog.String("battle_id", id), slog.String("error", err.Error()))
	}
	if _, err := s.ledger.Debit(ctx, loserID, b.Stake); err != nil {
		s.logger.WarnContext(ctx, "loser debit failed",
			slog.String("battle_id", id), slog.String("error", err.Error()))
	}

	winnerName := s.ledger.Name(winnerID)
	loserName := s.ledger.Name(loserID)
	switch callerID {
	case winnerID:
		s.publish(domain.BattleWon{Battle: b, LoserName: loserName})
	case loserID:
		s.publish(domain.BattleLost{Battle: b, WinnerName: winnerName})
	default:
		s.publish(domain.BattleSettled{Battle: b, WinnerName: winnerName, LoserName: loserName})
	}

	s.record(ctx, "battle.completed", map[string]any{
		"battle_id": id,
		"winner_id": winnerID,
		"loser_id":  loserID,
		"stake":     b.Stake,
	})
	return nil
}

// CancelBattle marks an active battle cancelled. The stake is never escrowed
// physically, so cancellation has no ledger effect. Unknown or non-active
// battles are silent no-ops.
func (s *Service) CancelBattle(ctx context.Context, id string) error {
	s.mu.Lock()
	b, ok := s.battles[id]
	if !ok || b.Status != domain.BattleActive {
		s.mu.Unlock()
		return nil
	}
	b.Status = domain.BattleCancelled
	s.battles[id] = b
	s.mu.Unlock()

	s.record(ctx, "battle.cancelled", map[string]any{"battle_id": id})
	return nil
}

// checkStake reports whether both parties can cover the stake. On failure it
// returns the short party and their balance. Unknown users count as zero
// balance.
func (s *Service) checkStake(challengerID, opponentID string, stake int64) (shortID string, have int64, ok bool) {
	cb, err := s.ledger.Balance(challengerID)
	if err != nil {
		cb = 0
	}
	if cb < stake {
		return challengerID, cb, false
	}
	ob, err := s.ledger.Balance(opponentID)
	if err != nil {
		ob = 0
	}
	if ob < stake {
		return opponentID, ob, false
	}
	return "", 0, true
}

func (s *Service) record(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
