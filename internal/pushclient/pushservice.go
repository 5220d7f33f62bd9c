package pushclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// Subscription is the serialized form of a push service registration, the
// same shape the subscribe endpoint expects.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// PushService abstracts the platform push manager. A nil PushService on the
// Manager means the capability is absent entirely.
type PushService interface {
	// Current returns the existing subscription, or nil when there is none.
	Current(ctx context.Context) (*Subscription, error)
	// Subscribe registers with the push service using the application server
	// key in raw byte form.
	Subscribe(ctx context.Context, applicationServerKey []byte) (*Subscription, error)
	Unsubscribe(ctx context.Context, endpoint string) error
}

// Permission is the outcome of a notification permission prompt.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// PermissionPrompter asks the user for notification permission.
type PermissionPrompter interface {
	RequestPermission(ctx context.Context) (Permission, error)
}

// DecodeApplicationServerKey converts a base64url-encoded VAPID public key
// into the raw byte array the subscribe call requires. Keys circulate both
// padded and unpadded, so padding is normalized first.
func DecodeApplicationServerKey(key string) ([]byte, error) {
	trimmed := strings.TrimRight(key, "=")
	if rem := len(trimmed) % 4; rem != 0 {
		trimmed += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.URLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid application server key: %w", err)
	}
	return raw, nil
}
