// Package notify is the outbound-notification collaborator of the auth
// core.  The core only knows the Notifier interface; the AMQP
// implementation hands messages to a broker from which a delivery worker
// drains them.  Rendering and actually sending mail is outside this
// service.
package notify

import (
	"context"

	"github.com/roamly/tour-booking-api/internal/model"
)

// Notifier delivers account emails.  SendWelcome is fire-and-forget from
// the caller's point of view.  SendPasswordReset must only return nil once
// the message is accepted for delivery: the reset flow clears the stored
// token when delivery fails, so a false success here would strand the user
// with a secret they never received.
type Notifier interface {
	SendWelcome(ctx context.Context, user model.User, accountURL string) error
	SendPasswordReset(ctx context.Context, user model.User, resetURL string) error
}

// Event is the message payload placed on the notification queue.  The
// reset URL embeds the plaintext secret; it travels only on this channel,
// which stands in for the user's mailbox.  It is never written to server
// logs or responses.
type Event struct {
	Kind     string `json:"kind"` // "welcome" | "password_reset"
	UserID   uint64 `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	URL      string `json:"url"`
	QueuedAt string `json:"queued_at"`
}

// Event kinds.
const (
	KindWelcome       = "welcome"
	KindPasswordReset = "password_reset"
)
