package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stridehq/stride/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when the push service reports a subscription gone
// (410); callers should prune the subscription.
var ErrExpired = errors.New("push subscription expired")

const subscriber = "mailto:noreply@stridehq.app"

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// Payload is the notification document the service worker receives. Kind
// doubles as the browser notification tag so a newer reminder replaces an
// older one instead of stacking.
type Payload struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// TrophyPayload builds the award announcement for a trophy.
func TrophyPayload(t model.Trophy) Payload {
	return Payload{
		Kind:  model.NotifTypeTrophyAwarded,
		Title: "Trophy earned!",
		Body:  fmt.Sprintf("%s: %s", t.Name, t.Description),
		URL:   "/trophies",
	}
}

// StreakReminderPayload builds the lapse warning for a sign-in streak of
// current days.
func StreakReminderPayload(current int) Payload {
	return Payload{
		Kind:  model.NotifTypeStreakReminder,
		Title: "Keep your streak alive",
		Body:  fmt.Sprintf("Your %d-day streak ends at midnight. Check in to keep it going.", current),
		URL:   "/",
	}
}

// ttl returns how long the push service may hold an undelivered message.
// Reminders are worthless after the day rolls over; award announcements can
// wait for the device.
func (p Payload) ttl() int {
	if p.Kind == model.NotifTypeStreakReminder {
		return 6 * 3600
	}
	return 86400
}

// Service sends web push notifications signed with a VAPID key pair.
type Service struct {
	publicKey  string
	privateKey string
}

func NewService(publicKey, privateKey string) *Service {
	return &Service{publicKey: publicKey, privateKey: privateKey}
}

// VAPIDPublicKey returns the public half for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send delivers one payload to one subscription.
func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      subscriber,
		TTL:             payload.ttl(),
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys generates a P-256 key pair encoded the way browser
// PushManager expects: base64url, uncompressed point for the public half.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pub := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	return base64.RawURLEncoding.EncodeToString(pub),
		base64.RawURLEncoding.EncodeToString(key.D.Bytes()),
		nil
}
