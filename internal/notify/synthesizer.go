// Package notify maps domain events to notification payloads. Synthesize is
// a pure function so the title/message/priority policy stays testable in
// isolation; the ledger credits that some events carry are applied by the
// separate RewardHook after synthesis, never inside the mapping.
package notify

import (
	"fmt"

	"github.com/questlab/engagehub/internal/domain"
)

// Synthesize builds the notification payload for a domain event. One event
// produces exactly one notification; the Data map carries the raw
// identifiers the UI needs to deep-link.
func Synthesize(ev domain.Event) domain.NotificationInput {
	switch e := ev.(type) {
	case domain.AchievementUnlocked:
		return domain.NotificationInput{
			Type:     domain.NotificationAchievement,
			Title:    "Achievement unlocked!",
			Message:  fmt.Sprintf("%s unlocked! You earned %d coins", e.Achievement.Title, e.Achievement.Reward),
			Priority: domain.PriorityHigh,
			Data: map[string]any{
				"achievementId": e.Achievement.ID,
				"reward":        e.Achievement.Reward,
			},
		}

	case domain.TaskAssigned:
		return domain.NotificationInput{
			Type:     domain.NotificationTask,
			Title:    "New task assigned",
			Message:  fmt.Sprintf("%q is waiting for you", e.Task.Title),
			Priority: domain.PriorityMedium,
			Data:     map[string]any{"taskId": e.Task.ID},
		}

	case domain.TaskCompleted:
		return domain.NotificationInput{
			Type:     domain.NotificationTask,
			Title:    "Task completed",
			Message:  fmt.Sprintf("%q is done, %d coins earned", e.Task.Title, e.Task.Reward),
			Priority: domain.PriorityMedium,
			Data: map[string]any{
				"taskId": e.Task.ID,
				"reward": e.Task.Reward,
			},
		}

	case domain.ItemListed:
		return domain.NotificationInput{
			Type:     domain.NotificationShop,
			Title:    "New item in the shop",
			Message:  fmt.Sprintf("%s is now available for %d coins", e.Item.Name, e.Item.Price),
			Priority: domain.PriorityLow,
			Data:     map[string]any{"itemId": e.Item.ID},
		}

	case domain.ItemOnSale:
		priority := domain.PriorityMedium
		if e.Item.Rarity == domain.RarityRare || e.Item.Rarity == domain.RarityEpic || e.Item.Rarity == domain.RarityLegendary {
			priority = domain.PriorityHigh
		}
		newPrice := e.Item.Price
		if e.Item.SalePrice != nil {
			newPrice = *e.Item.SalePrice
		}
		return domain.NotificationInput{
			Type:     domain.NotificationShop,
			Title:    "Price drop!",
			Message:  fmt.Sprintf("%s: %d → %d coins", e.Item.Name, e.OldPrice, newPrice),
			Priority: priority,
			Data: map[string]any{
				"itemId":   e.Item.ID,
				"oldPrice": e.OldPrice,
				"newPrice": newPrice,
			},
		}

	case domain.OrderDecided:
		title := "Order approved"
		message := fmt.Sprintf("Your order for %s was approved", e.Order.ItemName)
		if e.Order.Status == domain.OrderRejected {
			title = "Order rejected"
			message = fmt.Sprintf("Your order for %s was rejected, %d coins refunded", e.Order.ItemName, e.Order.Price)
		}
		return domain.NotificationInput{
			Type:     domain.NotificationShop,
			Title:    title,
			Message:  message,
			Priority: domain.PriorityMedium,
			Data: map[string]any{
				"orderId": e.Order.ID,
				"status":  string(e.Order.Status),
			},
		}

	case domain.CaseListed:
		return domain.NotificationInput{
			Type:     domain.NotificationSystem,
			Title:    "New case available",
			Message:  fmt.Sprintf("%s can now be opened for %d coins", e.Case.Name, e.Case.Price),
			Priority: domain.PriorityLow,
			Data:     map[string]any{"caseId": e.Case.ID},
		}

	case domain.CaseOpened:
		priority := domain.PriorityMedium
		var label string
		var amount int64
		if e.UserCase.Prize != nil {
			label = e.UserCase.Prize.Label
			amount = e.UserCase.Prize.Amount
			if e.UserCase.Prize.Rarity == domain.RarityLegendary {
				priority = domain.PriorityHigh
			}
		}
		return domain.NotificationInput{
			Type:     domain.NotificationSystem,
			Title:    "Case opened",
			Message:  fmt.Sprintf("%s dropped %s", e.UserCase.CaseName, label),
			Priority: priority,
			Data: map[string]any{
				"userCaseId": e.UserCase.ID,
				"prize":      label,
				"amount":     amount,
			},
		}

	case domain.LevelUp:
		return domain.NotificationInput{
			Type:     domain.NotificationAchievement,
			Title:    "Level up!",
			Message:  fmt.Sprintf("You reached level %d and earned a %d coin bonus", e.Level, e.Bonus),
			Priority: domain.PriorityHigh,
			Data: map[string]any{
				"userId": e.UserID,
				"level":  e.Level,
				"bonus":  e.Bonus,
			},
		}

	case domain.BattleChallenge:
		return domain.NotificationInput{
			Type:     domain.NotificationChallenge,
			Title:    "Battle challenge!",
			Message:  fmt.Sprintf("%s challenged you to a battle for %d coins", e.ChallengerName, e.Invitation.Stake),
			Priority: domain.PriorityMedium,
			Data: map[string]any{
				"invitationId": e.Invitation.ID,
				"challengerId": e.Invitation.ChallengerID,
				"stake":        e.Invitation.Stake,
				"expiresAt":    e.Invitation.ExpiresAt,
			},
		}

	case domain.BattleAccepted:
		return domain.NotificationInput{
			Type:     domain.NotificationBattle,
			Title:    "Challenge accepted",
			Message:  fmt.Sprintf("%s accepted your challenge. The battle is on!", e.OpponentName),
			Priority: domain.PriorityMedium,
			Data: map[string]any{
				"battleId": e.Battle.ID,
				"stake":    e.Battle.Stake,
			},
		}

	case domain.BattleDeclined:
		message := fmt.Sprintf("%s declined your challenge", e.OpponentName)
		if e.Reason != "" {
			message = fmt.Sprintf("%s declined your challenge: %s", e.OpponentName, e.Reason)
		}
		return domain.NotificationInput{
			Type:     domain.NotificationBattle,
			Title:    "Challenge declined",
			Message:  message,
			Priority: domain.PriorityLow,
			Data:     map[string]any{"invitationId": e.Invitation.ID},
		}

	case domain.BattleWon:
		return domain.NotificationInput{
			Type:     domain.NotificationBattle,
			Title:    "Victory!",
			Message:  fmt.Sprintf("You beat %s and won %d coins", e.LoserName, e.Battle.Stake),
			Priority: domain.PriorityHigh,
			Data: map[string]any{
				"battleId": e.Battle.ID,
				"stake":    e.Battle.Stake,
			},
		}

	case domain.BattleLost:
		return domain.NotificationInput{
			Type:     domain.NotificationBattle,
			Title:    "Defeat",
			Message:  fmt.Sprintf("%s won the battle, you lost %d coins", e.WinnerName, e.Battle.Stake),
			Priority: domain.PriorityMedium,
			Data: map[string]any{
				"battleId": e.Battle.ID,
				"stake":    e.Battle.Stake,
			},
		}

	case domain.BattleSettled:
		return domain.NotificationInput{
			Type:     domain.NotificationBattle,
			Title:    "Battle finished",
			Message:  fmt.Sprintf("%s defeated %s for %d coins", e.WinnerName, e.LoserName, e.Battle.Stake),
			Priority: domain.PriorityLow,
			Data:     map[string]any{"battleId": e.Battle.ID},
		}

	case domain.InsufficientFunds:
		return domain.NotificationInput{
			Type:     domain.NotificationError,
			Title:    "Not enough coins",
			Message:  fmt.Sprintf("%s requires %d coins but you have %d", e.Action, e.Need, e.Have),
			Priority: domain.PriorityHigh,
			Data: map[string]any{
				"userId": e.UserID,
				"need":   e.Need,
				"have":   e.Have,
			},
		}

	case domain.DailyMotivation:
		return domain.NotificationInput{
			Type:     domain.NotificationSystem,
			Title:    "Daily boost",
			Message:  e.Message,
			Priority: domain.PriorityLow,
		}

	case domain.Welcome:
		return domain.NotificationInput{
			Type:     domain.NotificationSystem,
			Title:    "Welcome aboard!",
			Message:  "Complete tasks, unlock achievements, and challenge your teammates to battles.",
			Priority: domain.PriorityMedium,
		}

	default:
		return domain.NotificationInput{
			Type:     domain.NotificationSystem,
			Title:    "Something happened",
			Message:  fmt.Sprintf("unhandled event %s", ev.Kind()),
			Priority: domain.PriorityLow,
		}
	}
}
