// Package notify publishes account lifecycle events to a message
// broker. Delivery is fire-and-forget: the triggering request never
// waits on, or fails because of, the broker.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/taskdeck/apiserver/types"
)

const publishTimeout = 10 * time.Second

// Event names carried in the message payload.
const (
	EventUserRegistered = "user.registered"
	EventUserCancelled  = "user.cancelled"
)

// Publisher sends a payload to a named channel. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// AccountEvent is the JSON payload published for account lifecycle
// changes. A downstream consumer turns these into welcome or
// cancellation emails.
type AccountEvent struct {
	Event      string    `json:"event"`
	UserID     int       `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccountNotifier publishes account events to a single channel.
type AccountNotifier struct {
	publisher Publisher
	channel   string
}

func NewAccountNotifier(publisher Publisher, channel string) *AccountNotifier {
	return &AccountNotifier{publisher: publisher, channel: channel}
}

// UserRegistered announces a new account. Returns immediately; the
// publish happens in the background.
func (n *AccountNotifier) UserRegistered(user types.User) {
	n.dispatch(EventUserRegistered, user)
}

// UserCancelled announces an account deletion. Returns immediately; the
// publish happens in the background.
func (n *AccountNotifier) UserCancelled(user types.User) {
	n.dispatch(EventUserCancelled, user)
}

func (n *AccountNotifier) dispatch(event string, user types.User) {
	if n == nil || n.publisher == nil {
		return
	}

	payload := AccountEvent{
		Event:      event,
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		OccurredAt: time.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		data, err := json.Marshal(payload)
		if err != nil {
			slog.Warn("failed to encode account event", "event", event, "error", err)
			return
		}

		attrs := map[string]string{"event": event}
		if _, err := n.publisher.Publish(ctx, n.channel, data, attrs); err != nil {
			slog.Warn("failed to publish account event",
				"event", event,
				"channel", n.channel,
				"user_id", user.ID,
				"error", err,
			)
		}
	}()
}
