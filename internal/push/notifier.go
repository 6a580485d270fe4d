package push

import (
	"errors"
	"log/slog"

	"github.com/stridehq/stride/internal/model"
	"github.com/stridehq/stride/internal/store"
)

// Notifier fans notifications out to every device a user has subscribed.
// Sends are best-effort: failures are logged and expired subscriptions are
// pruned, but nothing propagates back to the triggering request.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	log     *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, log *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, log: log}
}

// TrophyAwarded announces a freshly-earned trophy.
func (n *Notifier) TrophyAwarded(userID int64, trophy model.Trophy) {
	n.send(userID, TrophyPayload(trophy))
}

// StreakReminder nudges a user whose streak lapses at midnight.
func (n *Notifier) StreakReminder(userID int64, current int) {
	n.send(userID, StreakReminderPayload(current))
}

func (n *Notifier) send(userID int64, payload Payload) {
	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		n.log.Error("list push subscriptions failed", "user_id", userID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.log.Error("prune expired subscription failed", "user_id", userID, "error", err)
				}
				continue
			}
			n.log.Error("send push failed", "user_id", userID, "kind", payload.Kind, "error", err)
		}
	}
}
