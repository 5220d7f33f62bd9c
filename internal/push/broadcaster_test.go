package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpl-edge-go/internal/models"
	"cpl-edge-go/internal/store"
)

func testVAPIDKeys(t *testing.T) VAPIDKeys {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return VAPIDKeys{Public: public, Private: private}
}

// browserKeys produces a valid client keypair the way a browser would, so
// payload encryption succeeds and delivery reaches the transport.
func browserKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

func seedSubscription(t *testing.T, s *store.MemoryStore, endpoint string) {
	t.Helper()
	p256dh, auth := browserKeys(t)
	_, err := s.SaveSubscription(context.Background(), models.PushSubscription{
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
	require.NoError(t, err)
}

func newTestBroadcaster(subs store.SubscriptionStore, keys VAPIDKeys, client *http.Client) *Broadcaster {
	return NewBroadcaster(subs, Config{
		Keys:       keys,
		Subscriber: "mailto:web@cpl.example.edu",
		Client:     client,
	})
}

func TestSendZeroSubscriptionsShortCircuits(t *testing.T) {
	mt := httpmock.NewMockTransport()
	s := store.NewMemoryStore()
	b := newTestBroadcaster(s, testVAPIDKeys(t), &http.Client{Transport: mt})

	result, err := b.Send(context.Background(), Payload{Title: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestSendCountsSuccessesAndFailures(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, "https://push.example/ok",
		httpmock.NewStringResponder(http.StatusCreated, ""))
	mt.RegisterResponder(http.MethodPost, "https://push.example/gone",
		httpmock.NewStringResponder(http.StatusGone, ""))
	mt.RegisterResponder(http.MethodPost, "https://push.example/flaky",
		httpmock.NewStringResponder(http.StatusInternalServerError, "try later"))

	s := store.NewMemoryStore()
	seedSubscription(t, s, "https://push.example/ok")
	seedSubscription(t, s, "https://push.example/gone")
	seedSubscription(t, s, "https://push.example/flaky")

	b := newTestBroadcaster(s, testVAPIDKeys(t), &http.Client{Transport: mt})
	result, err := b.Send(context.Background(), Payload{Title: "Seminar", Body: "Room change"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 3, mt.GetTotalCallCount())
}

func TestSendDeactivatesGoneEndpointsOnly(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, "https://push.example/gone",
		httpmock.NewStringResponder(http.StatusGone, ""))
	mt.RegisterResponder(http.MethodPost, "https://push.example/flaky",
		httpmock.NewStringResponder(http.StatusBadGateway, ""))

	s := store.NewMemoryStore()
	seedSubscription(t, s, "https://push.example/gone")
	seedSubscription(t, s, "https://push.example/flaky")

	b := newTestBroadcaster(s, testVAPIDKeys(t), &http.Client{Transport: mt})
	result, err := b.Send(context.Background(), Payload{Title: "Paper accepted"})
	require.NoError(t, err)
	assert.Equal(t, Result{Success: 0, Failed: 2}, result)

	gone, ok := s.GetSubscription("https://push.example/gone")
	require.True(t, ok)
	assert.False(t, gone.Active, "410 must deactivate the subscription")

	flaky, ok := s.GetSubscription("https://push.example/flaky")
	require.True(t, ok)
	assert.True(t, flaky.Active, "transient failures must leave the subscription active")
}

func TestSendEachActiveSubscriptionOnce(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, `=~^https://push\.example/`,
		httpmock.NewStringResponder(http.StatusCreated, ""))

	s := store.NewMemoryStore()
	seedSubscription(t, s, "https://push.example/a")
	seedSubscription(t, s, "https://push.example/b")
	seedSubscription(t, s, "https://push.example/c")
	require.NoError(t, s.DeactivateSubscription(context.Background(), "https://push.example/c"))

	b := newTestBroadcaster(s, testVAPIDKeys(t), &http.Client{Transport: mt})
	result, err := b.Send(context.Background(), Payload{Title: "Weekly digest"})
	require.NoError(t, err)

	assert.Equal(t, Result{Success: 2, Failed: 0}, result)
	assert.Equal(t, 2, mt.GetTotalCallCount(), "inactive subscriptions are skipped")
}
