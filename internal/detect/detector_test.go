package detect

import (
	"testing"

	"github.com/questlab/engagehub/internal/domain"
)

func TestAchievementsUnlockEdge(t *testing.T) {
	locked := []domain.Achievement{{ID: "a1", Title: "First Blood", Reward: 50}}
	unlocked := []domain.Achievement{{ID: "a1", Title: "First Blood", Reward: 50, Unlocked: true}}

	events := Achievements(locked, unlocked)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev, ok := events[0].(domain.AchievementUnlocked)
	if !ok {
		t.Fatalf("expected AchievementUnlocked, got %T", events[0])
	}
	if ev.Achievement.ID != "a1" {
		t.Errorf("event carries wrong achievement: %q", ev.Achievement.ID)
	}
}

func TestAchievementsSingleTransitionPerEdge(t *testing.T) {
	// false -> true -> false -> true across three revisions: one event per
	// false->true edge, none on true->false.
	rev := func(unlocked bool) []domain.Achievement {
		return []domain.Achievement{{ID: "a1", Unlocked: unlocked}}
	}

	if n := len(Achievements(rev(false), rev(true))); n != 1 {
		t.Errorf("first unlock: expected 1 event, got %d", n)
	}
	if n := len(Achievements(rev(true), rev(false))); n != 0 {
		t.Errorf("relock: expected 0 events, got %d", n)
	}
	if n := len(Achievements(rev(false), rev(true))); n != 1 {
		t.Errorf("second unlock: expected 1 event, got %d", n)
	}
}

func TestDetectionIsIdempotent(t *testing.T) {
	prev := []domain.Task{{ID: "t1"}, {ID: "t2"}}
	cur := []domain.Task{{ID: "t1", Completed: true}, {ID: "t2"}, {ID: "t3"}}

	first := Tasks(prev, cur)
	second := Tasks(prev, cur)
	if len(first) != len(second) {
		t.Fatalf("detection not idempotent: %d vs %d events", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind() != second[i].Kind() {
			t.Errorf("event %d differs: %s vs %s", i, first[i].Kind(), second[i].Kind())
		}
	}
}

func TestNoTransitionYieldsNoEvents(t *testing.T) {
	sale := int64(80)
	items := []domain.ShopItem{
		{ID: "s1", Name: "Mug", Price: 100},
		{ID: "s2", Name: "Shirt", Price: 200, SalePrice: &sale},
	}
	if events := ShopItems(items, items); len(events) != 0 {
		t.Fatalf("identical collections: expected 0 events, got %d", len(events))
	}
}

func TestTasksAssignedAndCompleted(t *testing.T) {
	prev := []domain.Task{{ID: "t1"}}
	cur := []domain.Task{{ID: "t1", Completed: true, Reward: 25}, {ID: "t2", Title: "Write docs"}}

	events := Tasks(prev, cur)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if _, ok := events[0].(domain.TaskCompleted); !ok {
		t.Errorf("expected TaskCompleted first, got %T", events[0])
	}
	if _, ok := events[1].(domain.TaskAssigned); !ok {
		t.Errorf("expected TaskAssigned second, got %T", events[1])
	}
}

func TestShopItemsSaleIntroducedCarriesOldPrice(t *testing.T) {
	sale := int64(150)
	prev := []domain.ShopItem{{ID: "s1", Name: "Hoodie", Price: 300}}
	cur := []domain.ShopItem{{ID: "s1", Name: "Hoodie", Price: 300, SalePrice: &sale}}

	events := ShopItems(prev, cur)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0].(domain.ItemOnSale)
	if ev.OldPrice != 300 {
		t.Errorf("expected old price 300, got %d", ev.OldPrice)
	}
}

func TestShopItemsSaleChangedCarriesOldSalePrice(t *testing.T) {
	oldSale, newSale := int64(150), int64(120)
	prev := []domain.ShopItem{{ID: "s1", Price: 300, SalePrice: &oldSale}}
	cur := []domain.ShopItem{{ID: "s1", Price: 300, SalePrice: &newSale}}

	events := ShopItems(prev, cur)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if ev := events[0].(domain.ItemOnSale); ev.OldPrice != 150 {
		t.Errorf("expected old price 150, got %d", ev.OldPrice)
	}
}

func TestShopItemsSaleRemovedIsSilent(t *testing.T) {
	sale := int64(150)
	prev := []domain.ShopItem{{ID: "s1", Price: 300, SalePrice: &sale}}
	cur := []domain.ShopItem{{ID: "s1", Price: 300}}

	if events := ShopItems(prev, cur); len(events) != 0 {
		t.Fatalf("sale removal should be silent, got %d events", len(events))
	}
}

func TestOrdersDecisionTransitions(t *testing.T) {
	prev := []domain.Order{
		{ID: "o1", Status: domain.OrderPending},
		{ID: "o2", Status: domain.OrderPending},
		{ID: "o3", Status: domain.OrderApproved},
	}
	cur := []domain.Order{
		{ID: "o1", Status: domain.OrderApproved},
		{ID: "o2", Status: domain.OrderRejected, Price: 120},
		{ID: "o3", Status: domain.OrderApproved},
	}

	events := Orders(prev, cur)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, ev := range events {
		if _, ok := ev.(domain.OrderDecided); !ok {
			t.Errorf("expected OrderDecided, got %T", ev)
		}
	}
}

func TestOrdersNewDecidedOrderIsSilent(t *testing.T) {
	cur := []domain.Order{{ID: "o1", Status: domain.OrderApproved}}
	if events := Orders(nil, cur); len(events) != 0 {
		t.Fatalf("order appearing already decided should be silent, got %d events", len(events))
	}
}

func TestUserCasesOnlyResolvedPrizesReport(t *testing.T) {
	prize := domain.CasePrize{Label: "500 coins", Amount: 500, Rarity: domain.RarityLegendary}
	cur := []domain.UserCase{
		{ID: "uc1", UserID: "u1", Prize: &prize},
		{ID: "uc2", UserID: "u1"}, // unopened
	}

	events := UserCases(nil, cur)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0].(domain.CaseOpened)
	if ev.UserCase.ID != "uc1" {
		t.Errorf("wrong user case reported: %q", ev.UserCase.ID)
	}
}

func TestRemovalsAreSilent(t *testing.T) {
	prev := []domain.CaseType{{ID: "c1"}, {ID: "c2"}}
	cur := []domain.CaseType{{ID: "c1"}}
	if events := Cases(prev, cur); len(events) != 0 {
		t.Fatalf("removal should be silent, got %d events", len(events))
	}
}
