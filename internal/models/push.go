package models

import "time"

// PushSubscription is one browser endpoint registered for web push delivery.
// Endpoint is the unique key: re-subscribing from the same browser updates the
// keys and flips Active back on instead of inserting a duplicate. The
// broadcaster only deactivates endpoints, it never deletes them.
type PushSubscription struct {
	ID        int       `json:"id"`
	UserID    *int      `json:"user_id,omitempty"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"keys_p256dh"` // Mapped from keys.p256dh
	Auth      string    `json:"keys_auth"`   // Mapped from keys.auth
	UserAgent string    `json:"user_agent,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
