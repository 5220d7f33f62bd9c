package models

import "time"

// Notification statuses as stored server-side.
const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// Notification is the persisted record of a broadcast message. The payload
// itself is ephemeral; this is what the client list endpoint serves.
type Notification struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Image  string    `json:"image,omitempty"`
	Icon   string    `json:"icon,omitempty"`
	Link   string    `json:"link,omitempty"`
	SentAt time.Time `json:"sent_at"`
	Status string    `json:"status"`
}
