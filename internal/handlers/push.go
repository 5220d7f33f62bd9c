package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"cpl-edge-go/internal/models"
	"cpl-edge-go/internal/push"
)

// GetVAPIDKeyHandler returns the public VAPID key
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"publicKey": h.PublicKey,
	})
}

// SubscribePushHandler upserts a push subscription by endpoint. The owning
// user is attached when a session exists, but subscriptions are accepted
// anonymously; anyone visiting the site may opt in.
func (h *Handler) SubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
		UserAgent string `json:"user_agent,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	sub := models.PushSubscription{
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		UserAgent: userAgent,
	}
	if userID, _, _ := GetCurrentUser(r); userID != 0 {
		sub.UserID = &userID
	}

	if _, err := h.Store.SaveSubscription(r.Context(), sub); err != nil {
		log.Printf("Failed to save subscription: %v", err)
		http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// UnsubscribePushHandler deactivates a subscription by endpoint. The record
// is kept; hard deletion is a separate administrative action.
func (h *Handler) UnsubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.Store.DeactivateSubscription(r.Context(), req.Endpoint); err != nil {
		log.Printf("Failed to deactivate subscription: %v", err)
		http.Error(w, "Failed to deactivate subscription", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// NotifyHandler persists a notification record and broadcasts it to every
// active subscription. Admin only.
func (h *Handler) NotifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload push.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Title == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// The record goes in first; a broadcast without a persisted record would
	// be invisible to the notification list.
	saved, err := h.Store.CreateNotification(r.Context(), models.Notification{
		Title:  payload.Title,
		Body:   payload.Body,
		Image:  payload.Image,
		Icon:   payload.Icon,
		Link:   payload.Link,
		Status: models.NotificationStatusSent,
	})
	if err != nil {
		log.Printf("Failed to record notification: %v", err)
		http.Error(w, "Failed to record notification", http.StatusInternalServerError)
		return
	}

	result, err := h.Broadcaster.Send(r.Context(), payload)
	if err != nil {
		log.Printf("Broadcast failed: %v", err)
		if uerr := h.Store.UpdateNotificationStatus(r.Context(), saved.ID, models.NotificationStatusFailed); uerr != nil {
			log.Printf("Failed to mark notification failed: %v", uerr)
		}
		http.Error(w, "Broadcast failed", http.StatusInternalServerError)
		return
	}

	if result.Success == 0 && result.Failed > 0 {
		saved.Status = models.NotificationStatusFailed
		if err := h.Store.UpdateNotificationStatus(r.Context(), saved.ID, saved.Status); err != nil {
			log.Printf("Failed to mark notification failed: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      result.Success,
		"failed":       result.Failed,
		"notification": saved,
	})
}
