package domain

import "time"

// Rarity grades shop items and case prizes. Legendary prizes and rare (or
// better) shop sales surface as high-priority notifications.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Achievement is a tracked milestone. Reward is the coin credit granted when
// the achievement unlocks.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Unlocked    bool   `json:"unlocked"`
	Reward      int64  `json:"reward"`
}

// Task is an assignable unit of work with a completion reward.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	AssigneeID string     `json:"assignee_id,omitempty"`
	Completed  bool       `json:"completed"`
	Reward     int64      `json:"reward"`
	DueAt      *time.Time `json:"due_at,omitempty"`
}

// ShopItem is a purchasable catalog entry. SalePrice is nil when the item is
// not on sale; a non-nil value below Price marks an active discount.
type ShopItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	SalePrice *int64 `json:"sale_price,omitempty"`
	Rarity    Rarity `json:"rarity,omitempty"`
}

// OrderStatus is the review state of a shop order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderRejected OrderStatus = "rejected"
)

// Order is a user's purchase request awaiting an admin decision. Price is
// the amount debited at purchase time and refunded if the order is rejected.
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	ItemID    string      `json:"item_id"`
	ItemName  string      `json:"item_name"`
	Price     int64       `json:"price"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// CaseType is a purchasable loot case. Image optionally holds an inline
// base64-encoded image; the persistence layer strips it before serialization
// to keep persisted documents small.
type CaseType struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price int64   `json:"price"`
	Image *string `json:"image,omitempty"`
}

// CasePrize is the resolved outcome of opening a case.
type CasePrize struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
	Rarity Rarity `json:"rarity"`
}

// UserCase is a case owned by a user. Prize is nil until the case has been
// opened; a non-nil prize marks the case as resolved.
type UserCase struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	CaseTypeID string     `json:"case_type_id"`
	CaseName   string     `json:"case_name"`
	Prize      *CasePrize `json:"prize,omitempty"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
}
