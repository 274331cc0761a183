// Package domain defines the core types of the engagement engine:
// notifications, tracked entities, the ledger subject, battles, the domain
// events derived from collection diffs, and the storage interfaces the rest
// of the system is built against.
package domain

import "time"

// NotificationType categorizes a notification by the domain area it
// originates from. The UI uses the type for filtering and iconography.
type NotificationType string

const (
	NotificationTask        NotificationType = "task"
	NotificationBattle      NotificationType = "battle"
	NotificationAchievement NotificationType = "achievement"
	NotificationShop        NotificationType = "shop"
	NotificationSystem      NotificationType = "system"
	NotificationChallenge   NotificationType = "challenge"
	NotificationAdmin       NotificationType = "admin"
	NotificationError       NotificationType = "error"
)

// Priority is the display priority of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification is a single entry in the notification feed. Notifications are
// created via NotificationInput, ordered newest first, and mutated only
// through read-flag toggles.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Priority  Priority         `json:"priority"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
	Data      map[string]any   `json:"data,omitempty"`
}

// NotificationInput is the caller-supplied part of a notification. The store
// assigns the id, timestamp, and the initial unread flag.
type NotificationInput struct {
	Type     NotificationType `json:"type"`
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Priority Priority         `json:"priority"`
	Data     map[string]any   `json:"data,omitempty"`
}
