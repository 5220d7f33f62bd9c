package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"cpl-edge-go/internal/store"
)

// GetNotificationsHandler lists the persisted notifications, newest first.
func (h *Handler) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.Store.GetNotifications(r.Context())
	if err != nil {
		log.Println("Failed to get notifications:", err)
		http.Error(w, "Failed to get notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// DeleteNotificationHandler deletes one notification by id, taken from the
// path after /api/notifications/.
func (h *Handler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	if id == "" {
		http.Error(w, "Notification id is required", http.StatusBadRequest)
		return
	}

	if err := h.Store.DeleteNotification(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Notification not found", http.StatusNotFound)
			return
		}
		log.Println("Failed to delete notification:", err)
		http.Error(w, "Failed to delete notification", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteAllNotificationsHandler clears the notification history.
func (h *Handler) DeleteAllNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAllNotifications(r.Context()); err != nil {
		log.Println("Failed to delete notifications:", err)
		http.Error(w, "Failed to delete notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
