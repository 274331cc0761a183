package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/questlab/engagehub/internal/domain"
)

// NotificationStore is the ordered in-memory notification feed. Entries are
// kept newest first; the in-memory list is unbounded, only the persisted
// form is capped. All mutations are serialized by a single mutex so ordering
// stays stable under concurrent adds.
type NotificationStore struct {
	mu       sync.Mutex
	items    []domain.Notification
	onChange func()

	now   func() time.Time
	newID func() string
}

// NewNotificationStore creates an empty store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// SetOnChange registers a hook invoked after every mutation, outside the
// store lock. Used to kick the persistence flusher and the websocket
// broadcast.
func (s *NotificationStore) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *NotificationStore) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Add assigns an id and the current timestamp, marks the entry unread, and
// prepends it to the feed. No deduplication is performed.
func (s *NotificationStore) Add(input domain.NotificationInput) domain.Notification {
	n := domain.Notification{
		ID:        s.newID(),
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Priority:  input.Priority,
		Timestamp: s.now(),
		Read:      false,
		Data:      input.Data,
	}

	s.mu.Lock()
	s.items = append([]domain.Notification{n}, s.items...)
	s.mu.Unlock()

	s.changed()
	return n
}

// List returns a copy of the feed, newest first.
func (s *NotificationStore) List() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Replace swaps the whole feed, used when restoring persisted state at
// startup. The slice is stored as-is (assumed newest first).
func (s *NotificationStore) Replace(items []domain.Notification) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.changed()
}

// MarkRead flips the read flag on one entry. Absent ids are a no-op.
func (s *NotificationStore) MarkRead(id string) {
	s.mu.Lock()
	mutated := false
	for i := range s.items {
		if s.items[i].ID == id {
			if !s.items[i].Read {
				s.items[i].Read = true
				mutated = true
			}
			break
		}
	}
	s.mu.Unlock()

	if mutated {
		s.changed()
	}
}

// MarkAllRead flips the read flag on every entry.
func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	mutated := false
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			mutated = true
		}
	}
	s.mu.Unlock()

	if mutated {
		s.changed()
	}
}

// Remove deletes one entry. Absent ids are a no-op.
func (s *NotificationStore) Remove(id string) {
	s.mu.Lock()
	mutated := false
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			mutated = true
			break
		}
	}
	s.mu.Unlock()

	if mutated {
		s.changed()
	}
}

// Clear deletes every entry.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	mutated := len(s.items) > 0
	s.items = nil
	s.mu.Unlock()

	if mutated {
		s.changed()
	}
}

// UnreadCount returns the number of unread entries.
func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.items {
		if !s.items[i].Read {
			count++
		}
	}
	return count
}
