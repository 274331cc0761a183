// Package detect implements the change detector: pure per-type comparisons
// of a previous and a current entity collection that yield domain events for
// each observed transition. Detection performs no I/O and holds no state;
// the caller owns the previous snapshot and replaces it wholesale after each
// pass, so each real change is reported exactly once.
//
// Entities removed from the current collection are never reported; deletions
// are silent.
package detect

import "github.com/questlab/engagehub/internal/domain"

// Achievements reports an AchievementUnlocked event for every achievement
// whose unlocked flag transitioned from false to true. Newly appearing
// achievements produce no event unless they appear already unlocked with a
// prior locked counterpart, which cannot happen; first appearances are
// silent.
func Achievements(prev, cur []domain.Achievement) []domain.Event {
	byID := make(map[string]domain.Achievement, len(prev))
	for _, a := range prev {
		byID[a.ID] = a
	}

	var events []domain.Event
	for _, a := range cur {
		old, ok := byID[a.ID]
		if ok && !old.Unlocked && a.Unlocked {
			events = append(events, domain.AchievementUnlocked{Achievement: a})
		}
	}
	return events
}

// Tasks reports TaskAssigned for tasks with no prior counterpart and
// TaskCompleted for tasks whose completed flag transitioned from false to
// true.
func Tasks(prev, cur []domain.Task) []domain.Event {
	byID := make(map[string]domain.Task, len(prev))
	for _, t := range prev {
		byID[t.ID] = t
	}

	var events []domain.Event
	for _, t := range cur {
		old, ok := byID[t.ID]
		if !ok {
			events = append(events, domain.TaskAssigned{Task: t})
			continue
		}
		if !old.Completed && t.Completed {
			events = append(events, domain.TaskCompleted{Task: t})
		}
	}
	return events
}

// ShopItems reports ItemListed for items with no prior counterpart and
// ItemOnSale when a sale price is introduced or changed to a different
// non-nil value. The event carries the previously effective price (the old
// sale price if one existed, the list price otherwise) for display.
func ShopItems(prev, cur []domain.ShopItem) []domain.Event {
	byID := make(map[string]domain.ShopItem, len(prev))
	for _, it := range prev {
		byID[it.ID] = it
	}

	var events []domain.Event
	for _, it := range cur {
		old, ok := byID[it.ID]
		if !ok {
			events = append(events, domain.ItemListed{Item: it})
			continue
		}
		if it.SalePrice == nil {
			continue
		}
		if old.SalePrice != nil && *old.SalePrice == *it.SalePrice {
			continue
		}
		oldPrice := old.Price
		if old.SalePrice != nil {
			oldPrice = *old.SalePrice
		}
		events = append(events, domain.ItemOnSale{Item: it, OldPrice: oldPrice})
	}
	return events
}

// Orders reports OrderDecided for orders whose status changed to approved or
// rejected. Orders appearing already decided without a prior counterpart are
// not reported; the transition must be observed.
func Orders(prev, cur []domain.Order) []domain.Event {
	byID := make(map[string]domain.Order, len(prev))
	for _, o := range prev {
		byID[o.ID] = o
	}

	var events []domain.Event
	for _, o := range cur {
		old, ok := byID[o.ID]
		if !ok {
			continue
		}
		if old.Status == o.Status {
			continue
		}
		if o.Status == domain.OrderApproved || o.Status == domain.OrderRejected {
			events = append(events, domain.OrderDecided{Order: o})
		}
	}
	return events
}

// Cases reports CaseListed for case types with no prior counterpart.
func Cases(prev, cur []domain.CaseType) []domain.Event {
	byID := make(map[string]domain.CaseType, len(prev))
	for _, c := range prev {
		byID[c.ID] = c
	}

	var events []domain.Event
	for _, c := range cur {
		if _, ok := byID[c.ID]; !ok {
			events = append(events, domain.CaseListed{Case: c})
		}
	}
	return events
}

// UserCases reports CaseOpened for user cases that appear with no prior
// counterpart and already carry a resolved prize. Unopened cases appearing
// for the first time are silent.
func UserCases(prev, cur []domain.UserCase) []domain.Event {
	byID := make(map[string]domain.UserCase, len(prev))
	for _, uc := range prev {
		byID[uc.ID] = uc
	}

	var events []domain.Event
	for _, uc := range cur {
		if _, ok := byID[uc.ID]; ok {
			continue
		}
		if uc.Prize != nil {
			events = append(events, domain.CaseOpened{UserCase: uc})
		}
	}
	return events
}
