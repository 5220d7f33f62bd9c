package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cpl-edge-go/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests and by local development
// without a database. Semantics mirror the Postgres implementation:
// subscriptions are keyed by endpoint, SaveSubscription upserts and forces
// active=true.
type MemoryStore struct {
	mu            sync.RWMutex
	nextSubID     int
	nextUserID    int
	subs          map[string]models.PushSubscription // by endpoint
	notifications map[string]models.Notification
	users         map[string]models.User // by username
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:          make(map[string]models.PushSubscription),
		notifications: make(map[string]models.Notification),
		users:         make(map[string]models.User),
	}
}

func (s *MemoryStore) SaveSubscription(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.subs[sub.Endpoint]; ok {
		existing.UserID = sub.UserID
		existing.P256dh = sub.P256dh
		existing.Auth = sub.Auth
		existing.UserAgent = sub.UserAgent
		existing.Active = true
		existing.UpdatedAt = now
		s.subs[sub.Endpoint] = existing
		return existing, nil
	}

	s.nextSubID++
	sub.ID = s.nextSubID
	sub.Active = true
	sub.CreatedAt = now
	sub.UpdatedAt = now
	s.subs[sub.Endpoint] = sub
	return sub, nil
}

func (s *MemoryStore) GetActiveSubscriptions(ctx context.Context, limit int) ([]models.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []models.PushSubscription
	for _, sub := range s.subs {
		if sub.Active {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (s *MemoryStore) DeactivateSubscription(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[endpoint]
	if !ok {
		return ErrNotFound
	}
	sub.Active = false
	sub.UpdatedAt = time.Now().UTC()
	s.subs[endpoint] = sub
	return nil
}

func (s *MemoryStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, endpoint)
	return nil
}

// GetSubscription looks up a subscription by endpoint. Test helper.
func (s *MemoryStore) GetSubscription(endpoint string) (models.PushSubscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[endpoint]
	return sub, ok
}

// SubscriptionCount reports the number of stored records, active or not.
func (s *MemoryStore) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.subs)
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusSent
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	s.notifications[n.ID] = n
	return n, nil
}

func (s *MemoryStore) UpdateNotificationStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = status
	s.notifications[id] = n
	return nil
}

func (s *MemoryStore) GetNotifications(ctx context.Context) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var notifications []models.Notification
	for _, n := range s.notifications {
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].SentAt.After(notifications[j].SentAt)
	})
	return notifications, nil
}

func (s *MemoryStore) DeleteNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[id]; !ok {
		return ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *MemoryStore) DeleteAllNotifications(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = make(map[string]models.Notification)
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, username, password, role string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	s.nextUserID++
	user := models.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = user
	return user, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for username, user := range s.users {
		if user.ID == userID {
			user.TOTPSecret = totpSecret
			user.TOTPEnabled = enabled
			s.users[username] = user
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Disable2FA(ctx context.Context, userID int) error {
	return s.UpdateUser2FA(ctx, userID, "", false)
}
