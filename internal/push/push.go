package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

// ErrExpired is returned when a device token or subscription is no longer
// valid and should be deactivated.
var ErrExpired = errors.New("push token expired")

// Notification is the provider-neutral (title, body, data) triple.
// Data values are always strings.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender delivers a notification to one device.
type Sender interface {
	Send(ctx context.Context, device model.UserDevice, n Notification) error
}

// WebPush sends notifications to browser subscriptions using VAPID.
type WebPush struct {
	publicKey  string
	privateKey string
	subscriber string
	client     webpush.HTTPClient
}

// NewWebPush creates a web push sender. client may be nil.
func NewWebPush(publicKey, privateKey, subscriber string, client webpush.HTTPClient) *WebPush {
	if subscriber == "" {
		subscriber = "mailto:noreply@mauzenfan.app"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WebPush{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		client:     client,
	}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *WebPush) VAPIDPublicKey() string {
	return s.publicKey
}

// Send sends a push notification to a web subscription. The device token
// is the subscription endpoint.
func (s *WebPush) Send(ctx context.Context, device model.UserDevice, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: device.Token,
		Keys: webpush.Keys{
			P256dh: device.P256dhKey,
			Auth:   device.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
