// Package pushclient is the browser-side subscription manager expressed as a
// Go client: it registers with the push service, persists the subscription
// through the server API, and keeps a client-local unread count.
package pushclient

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"cpl-edge-go/internal/models"
)

var (
	// ErrUnsupported means the push capability is absent. Callers surface it
	// as a disabled feature, never as a hard failure.
	ErrUnsupported = errors.New("push not supported")
	// ErrNoServerKey means no VAPID public key is configured.
	ErrNoServerKey = errors.New("application server key not configured")
	// ErrPermissionDenied means the user declined (or dismissed) the prompt.
	ErrPermissionDenied = errors.New("notification permission not granted")
)

type Manager struct {
	svc       PushService // nil when the capability is absent
	prompt    PermissionPrompter
	api       ServerAPI
	publicKey string // base64url application server key
	userAgent string
	reads     *ReadState

	// loading guards the subscribe flow. It is a flag, not a lock:
	// re-entrant calls observe it but proceed independently.
	loading atomic.Bool

	// subscribed is the optimistic local flag. It can diverge from server
	// truth when the server call fails after the push service call
	// succeeded; CheckSubscriptionStatus re-derives it from the service.
	subscribed atomic.Bool

	mu            sync.Mutex
	notifications []models.Notification
	unread        int
}

func NewManager(svc PushService, prompt PermissionPrompter, api ServerAPI, publicKey, userAgent string, reads *ReadState) *Manager {
	return &Manager{
		svc:       svc,
		prompt:    prompt,
		api:       api,
		publicKey: publicKey,
		userAgent: userAgent,
		reads:     reads,
	}
}

// CheckSubscriptionStatus reports whether an active push subscription exists.
// It never fails outward: capability absence and errors both read as "not
// subscribed".
func (m *Manager) CheckSubscriptionStatus(ctx context.Context) bool {
	if m.svc == nil {
		m.subscribed.Store(false)
		return false
	}
	sub, err := m.svc.Current(ctx)
	ok := err == nil && sub != nil
	m.subscribed.Store(ok)
	return ok
}

// IsLoading reports whether a subscribe flow is in flight.
func (m *Manager) IsLoading() bool {
	return m.loading.Load()
}

// IsSubscribed returns the local (optimistic) subscription flag.
func (m *Manager) IsSubscribed() bool {
	return m.subscribed.Load()
}

// Subscribe runs the opt-in flow: prompt for permission, register with the
// push service using the configured application server key, then persist the
// subscription server-side together with the user agent.
func (m *Manager) Subscribe(ctx context.Context) error {
	if m.svc == nil {
		return ErrUnsupported
	}
	if m.publicKey == "" {
		return ErrNoServerKey
	}

	m.loading.Store(true)
	defer m.loading.Store(false)

	perm, err := m.prompt.RequestPermission(ctx)
	if err != nil || perm != PermissionGranted {
		return ErrPermissionDenied
	}

	serverKey, err := DecodeApplicationServerKey(m.publicKey)
	if err != nil {
		return err
	}

	sub, err := m.svc.Subscribe(ctx, serverKey)
	if err != nil {
		return err
	}

	// Local state flips before the server round-trip completes.
	m.subscribed.Store(true)

	if err := m.api.SaveSubscription(ctx, *sub, m.userAgent); err != nil {
		return err
	}
	return nil
}

// Unsubscribe drops the push service registration and deactivates the
// endpoint server-side. A server failure after a successful unsubscribe is
// logged but still reported as success; the endpoint will be pruned on the
// next 410.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	if m.svc == nil {
		return ErrUnsupported
	}

	sub, err := m.svc.Current(ctx)
	if err != nil {
		return err
	}
	if sub == nil {
		m.subscribed.Store(false)
		return nil
	}

	if err := m.svc.Unsubscribe(ctx, sub.Endpoint); err != nil {
		return err
	}
	m.subscribed.Store(false)

	if err := m.api.DeactivateSubscription(ctx, sub.Endpoint); err != nil {
		log.Printf("pushclient: failed to deactivate %s server-side: %v", sub.Endpoint, err)
	}
	return nil
}

// MarkAsRead acknowledges one notification locally.
func (m *Manager) MarkAsRead(id string) error {
	if err := m.reads.MarkRead(id); err != nil {
		return err
	}
	m.recount()
	return nil
}

// MarkAllAsRead acknowledges every currently fetched notification.
func (m *Manager) MarkAllAsRead() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.notifications))
	for _, n := range m.notifications {
		ids = append(ids, n.ID)
	}
	m.mu.Unlock()

	if err := m.reads.MarkRead(ids...); err != nil {
		return err
	}
	m.recount()
	return nil
}

// DeleteNotification removes a notification server-side and prunes its id
// from the local read set on success.
func (m *Manager) DeleteNotification(ctx context.Context, id string) error {
	if err := m.api.DeleteNotification(ctx, id); err != nil {
		return err
	}
	if err := m.reads.Prune(id); err != nil {
		return err
	}

	m.mu.Lock()
	kept := m.notifications[:0]
	for _, n := range m.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	m.notifications = kept
	m.mu.Unlock()

	m.recount()
	return nil
}

// DeleteAllNotifications clears the server list and the local read set.
func (m *Manager) DeleteAllNotifications(ctx context.Context) error {
	if err := m.api.DeleteAllNotifications(ctx); err != nil {
		return err
	}
	if err := m.reads.Clear(); err != nil {
		return err
	}

	m.mu.Lock()
	m.notifications = nil
	m.unread = 0
	m.mu.Unlock()
	return nil
}

// FetchNotifications pulls the server-authoritative list and recomputes the
// unread count as fetched ids minus locally acknowledged ids.
func (m *Manager) FetchNotifications(ctx context.Context) error {
	list, err := m.api.Notifications(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.notifications = list
	m.mu.Unlock()

	m.recount()
	return nil
}

// Notifications returns the last fetched list.
func (m *Manager) Notifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// UnreadCount returns the current unread count.
func (m *Manager) UnreadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.unread
}

func (m *Manager) recount() {
	m.mu.Lock()
	defer m.mu.Unlock()

	unread := 0
	for _, n := range m.notifications {
		if !m.reads.IsRead(n.ID) {
			unread++
		}
	}
	m.unread = unread
}

// Run fetches once at startup and then on a fixed interval until the context
// ends. Fetch failures are logged and retried on the next tick.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if err := m.FetchNotifications(ctx); err != nil {
		log.Printf("pushclient: fetch notifications: %v", err)
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := m.FetchNotifications(ctx); err != nil {
				log.Printf("pushclient: fetch notifications: %v", err)
			}
		}
	}
}
