package feedback

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/ptts/sonuby-api/internal/errors"
	"github.com/ptts/sonuby-api/internal/logging"
)

// Notifier fans feedback out to the delivery channels and forwards
// operational error events to Slack.
type Notifier struct {
	email  *EmailSender
	slack  *SlackClient
	logger *logging.Logger
}

// NewNotifier creates a notifier over the given channels.
func NewNotifier(email *EmailSender, slack *SlackClient, logger *logging.Logger) *Notifier {
	return &Notifier{email: email, slack: slack, logger: logger}
}

// attempt is one delivery channel in the fallback chain.
type attempt struct {
	name string
	send func(ctx context.Context) error
}

// Deliver sends the feedback through the ordered fallback chain: email
// first, Slack second. It fails only when every channel fails, carrying
// all underlying causes.
func (n *Notifier) Deliver(ctx context.Context, fb *Feedback) error {
	attempts := []attempt{
		{"email", func(ctx context.Context) error { return n.email.Send(ctx, fb) }},
		{"slack", func(ctx context.Context) error {
			return n.slack.SendMessage(ctx, FeedbackChannel, formatFeedback(fb))
		}},
	}

	var causes []error
	for _, a := range attempts {
		err := a.send(ctx)
		if err == nil {
			return nil
		}
		n.logger.WithContext(ctx).WithError(err).Warn("feedback delivery via %s failed", a.name)
		causes = append(causes, fmt.Errorf("%s: %w", a.name, err))
	}

	joined := stderrors.Join(causes...)
	return errors.Internal("Failed to send feedback", joined).
		WithLogEvent("Failed to send feedback", joined.Error())
}

// NotifyError forwards an operational error event to the backend errors
// channel. Delivery is best-effort: failures are logged and swallowed so
// operational notification can never fail the primary request.
func (n *Notifier) NotifyError(ctx context.Context, event errors.LogEvent) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		value = []byte(fmt.Sprintf("%v", event.Value))
	}
	text := fmt.Sprintf("New error received:\n\n*Message*: %s\n*Details*: %s", event.Title, value)

	if err := n.slack.SendMessage(ctx, ErrorsChannel, text); err != nil {
		n.logger.WithContext(ctx).WithError(err).Error("failed to forward error event to Slack")
	}
}
