package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/questlab/engagehub/internal/domain"
)

// NotificationService defines the methods that the notification handler
// requires from the engine.
type NotificationService interface {
	Notifications() []domain.Notification
	AddNotification(input domain.NotificationInput) domain.Notification
	MarkNotificationRead(id string)
	MarkAllNotificationsRead()
	RemoveNotification(id string)
	ClearAllNotifications()
}

// NotificationHandler serves the notification feed endpoints.
type NotificationHandler struct {
	engine NotificationService
	logger *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler with the given engine
// and logger.
func NewNotificationHandler(engine NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		engine: engine,
		logger: logger,
	}
}

// listNotificationsResponse wraps the list notifications response.
type listNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// ListNotifications returns the feed, newest first.
// GET /api/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	feed := h.engine.Notifications()
	unread := 0
	for _, n := range feed {
		if !n.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, listNotificationsResponse{
		Notifications: feed,
		Unread:        unread,
	})
}

// CreateNotification appends a caller-built notification to the feed.
// POST /api/notifications
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var input domain.NotificationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if input.Type == "" {
		input.Type = domain.NotificationSystem
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityLow
	}

	n := h.engine.AddNotification(input)
	writeJSON(w, http.StatusCreated, n)
}

// MarkRead flips one notification's read flag. Unknown ids succeed silently.
// PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.engine.MarkNotificationRead(pathParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead flips every notification's read flag.
// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	h.engine.MarkAllNotificationsRead()
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNotification removes one notification. Unknown ids succeed silently.
// DELETE /api/notifications/{id}
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	h.engine.RemoveNotification(pathParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearNotifications empties the feed.
// DELETE /api/notifications
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearAllNotifications()
	w.WriteHeader(http.StatusNoContent)
}
