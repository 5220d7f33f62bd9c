// Package push fans a notification payload out to every active web push
// subscription. Deliveries are concurrent within an explicit bound, never
// retried, and never batched beyond that bound.
package push

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/SherClockHolmes/webpush-go"

	"cpl-edge-go/internal/models"
	"cpl-edge-go/internal/store"
)

// Config tunes a Broadcaster.
type Config struct {
	Keys       VAPIDKeys
	Subscriber string // contact URI included in VAPID claims
	TTL        int    // seconds the push service may queue a message
	// BatchLimit bounds how many active subscriptions one broadcast loads.
	BatchLimit int
	// Concurrency bounds in-flight deliveries.
	Concurrency int
	// Client overrides the HTTP client handed to webpush-go. Tests inject a
	// mocked transport here.
	Client *http.Client
}

type Broadcaster struct {
	subs store.SubscriptionStore
	cfg  Config
}

func NewBroadcaster(subs store.SubscriptionStore, cfg Config) *Broadcaster {
	if cfg.TTL <= 0 {
		cfg.TTL = 30
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 1000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return &Broadcaster{subs: subs, cfg: cfg}
}

// Send delivers the payload once to every active subscription. An endpoint
// the push service reports as permanently gone (HTTP 410) is deactivated;
// every other failure leaves the subscription untouched. With zero active
// subscriptions it returns immediately without building the payload.
func (b *Broadcaster) Send(ctx context.Context, payload Payload) (Result, error) {
	subs, err := b.subs.GetActiveSubscriptions(ctx, b.cfg.BatchLimit)
	if err != nil {
		return Result{}, err
	}
	if len(subs) == 0 {
		return Result{}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	var success, failed atomic.Int64
	sem := make(chan struct{}, b.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub models.PushSubscription) {
			defer wg.Done()
			defer func() { <-sem }()

			if b.deliver(ctx, data, sub) {
				success.Add(1)
			} else {
				failed.Add(1)
			}
		}(sub)
	}
	wg.Wait()

	return Result{Success: int(success.Load()), Failed: int(failed.Load())}, nil
}

func (b *Broadcaster) deliver(ctx context.Context, data []byte, sub models.PushSubscription) bool {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	opts := &webpush.Options{
		Subscriber:      b.cfg.Subscriber,
		VAPIDPublicKey:  b.cfg.Keys.Public,
		VAPIDPrivateKey: b.cfg.Keys.Private,
		TTL:             b.cfg.TTL,
	}
	if b.cfg.Client != nil {
		opts.HTTPClient = b.cfg.Client
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, s, opts)
	if err != nil {
		log.Printf("push: failed to send to %s: %v", sub.Endpoint, err)
		return false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true
	case resp.StatusCode == http.StatusGone:
		// The push service will never accept this endpoint again.
		if err := b.subs.DeactivateSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("push: failed to deactivate %s: %v", sub.Endpoint, err)
		}
		return false
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("push: unexpected status %d for %s: %s", resp.StatusCode, sub.Endpoint, body)
		return false
	}
}
