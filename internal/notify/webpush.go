package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const webpushTTL = 86400 // seconds

// WebPushProvider delivers notifications over the Web Push protocol. The
// endpoint token registered by clients is the JSON-serialized browser push
// subscription (endpoint URL plus p256dh/auth keys).
type WebPushProvider struct {
	publicKey  string
	privateKey string
	subscriber string
}

func NewWebPushProvider(publicKey, privateKey, subscriber string) *WebPushProvider {
	if subscriber == "" {
		subscriber = "mailto:ops@fieldops.app"
	}
	return &WebPushProvider{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

// VAPIDPublicKey returns the public key clients need to subscribe.
func (p *WebPushProvider) VAPIDPublicKey() string {
	return p.publicKey
}

func (p *WebPushProvider) Send(ctx context.Context, endpointToken string, n Notification) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(endpointToken), &sub); err != nil || sub.Endpoint == "" {
		return fmt.Errorf("%w: token is not a push subscription", ErrInvalidEndpoint)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &webpush.Options{
		VAPIDPublicKey:  p.publicKey,
		VAPIDPrivateKey: p.privateKey,
		Subscriber:      p.subscriber,
		TTL:             webpushTTL,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// The push service dropped this subscription for good.
		return fmt.Errorf("%w: push service returned %d", ErrInvalidEndpoint, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys creates a fresh VAPID key pair for operator bootstrap.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}
