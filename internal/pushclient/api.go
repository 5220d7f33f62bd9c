package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cpl-edge-go/internal/models"
)

// ServerAPI is the notification store boundary as seen from the client.
type ServerAPI interface {
	SaveSubscription(ctx context.Context, sub Subscription, userAgent string) error
	DeactivateSubscription(ctx context.Context, endpoint string) error
	Notifications(ctx context.Context) ([]models.Notification, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllNotifications(ctx context.Context) error
}

// HTTPAPI talks to the edge service's /api/push and /api/notifications
// routes.
type HTTPAPI struct {
	base   string
	client *http.Client
}

func NewHTTPAPI(base string, client *http.Client) *HTTPAPI {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPAPI{base: strings.TrimRight(base, "/"), client: client}
}

type subscribeRequest struct {
	Subscription
	UserAgent string `json:"user_agent,omitempty"`
}

func (a *HTTPAPI) SaveSubscription(ctx context.Context, sub Subscription, userAgent string) error {
	return a.post(ctx, "/api/push/subscribe", subscribeRequest{Subscription: sub, UserAgent: userAgent})
}

func (a *HTTPAPI) DeactivateSubscription(ctx context.Context, endpoint string) error {
	return a.post(ctx, "/api/push/unsubscribe", map[string]string{"endpoint": endpoint})
}

func (a *HTTPAPI) Notifications(ctx context.Context) ([]models.Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/notifications", nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list notifications: status %d", resp.StatusCode)
	}

	var out struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (a *HTTPAPI) DeleteNotification(ctx context.Context, id string) error {
	return a.delete(ctx, "/api/notifications/"+url.PathEscape(id))
}

func (a *HTTPAPI) DeleteAllNotifications(ctx context.Context) error {
	return a.delete(ctx, "/api/notifications")
}

func (a *HTTPAPI) post(ctx context.Context, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return nil
}

func (a *HTTPAPI) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.base+path, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return nil
}
