package notify

import (
	"context"
	"log/slog"

	"github.com/questlab/engagehub/internal/domain"
)

// Crediter is the narrow ledger surface the reward hook needs.
type Crediter interface {
	Credit(ctx context.Context, userID string, amount int64) (domain.User, error)
}

// RewardHook applies the ledger credits that certain events carry as a
// consequence: achievement rewards, task completion rewards, and refunds for
// rejected orders. It runs after synthesis so the pure mapping stays free of
// side effects.
type RewardHook struct {
	ledger  Crediter
	ownerID string
	logger  *slog.Logger
}

// NewRewardHook creates a RewardHook. ownerID is the user credited for
// events that carry no user of their own (achievements, unassigned tasks).
func NewRewardHook(ledger Crediter, ownerID string, logger *slog.Logger) *RewardHook {
	return &RewardHook{
		ledger:  ledger,
		ownerID: ownerID,
		logger:  logger.With(slog.String("component", "reward_hook")),
	}
}

// Apply performs the credit for events that grant one. Events without a
// reward consequence are ignored. Credit failures are logged and swallowed;
// a missed reward never interrupts the notification flow.
func (h *RewardHook) Apply(ctx context.Context, ev domain.Event) {
	var (
		userID string
		amount int64
	)

	switch e := ev.(type) {
	case domain.AchievementUnlocked:
		userID, amount = h.ownerID, e.Achievement.Reward
	case domain.TaskCompleted:
		userID, amount = e.Task.AssigneeID, e.Task.Reward
		if userID == "" {
			userID = h.ownerID
		}
	case domain.OrderDecided:
		// Rejected orders refund the purchase price; approvals carry no
		// ledger effect here.
		if e.Order.Status != domain.OrderRejected {
			return
		}
		userID, amount = e.Order.UserID, e.Order.Price
	default:
		return
	}

	if userID == "" || amount <= 0 {
		return
	}

	if _, err := h.ledger.Credit(ctx, userID, amount); err != nil {
		h.logger.WarnContext(ctx, "reward credit failed",
			slog.String("event", string(ev.Kind())),
			slog.String("user_id", userID),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()),
		)
	}
}
