package store

import (
	"context"
	"errors"

	"cpl-edge-go/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SubscriptionStore handles push subscription persistence. SaveSubscription
// upserts by endpoint so repeated subscription from the same browser is
// idempotent. The broadcaster deactivates rather than deletes; hard deletion
// is an explicit administrative action.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error)
	GetActiveSubscriptions(ctx context.Context, limit int) ([]models.PushSubscription, error)
	DeactivateSubscription(ctx context.Context, endpoint string) error
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// NotificationStore handles the persisted record of broadcast notifications.
// The record is created before the broadcast goes out; UpdateNotificationStatus
// marks it failed afterwards when no endpoint accepted it.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	UpdateNotificationStatus(ctx context.Context, id, status string) error
	GetNotifications(ctx context.Context) ([]models.Notification, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllNotifications(ctx context.Context) error
}

// UserStore handles editor accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, password, role string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error
	Disable2FA(ctx context.Context, userID int) error
}

// Store is the full persistence surface consumed by the handlers.
type Store interface {
	SubscriptionStore
	NotificationStore
	UserStore
}
