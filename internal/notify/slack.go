package notify

import (
	"context"
	"fmt"
	"net/http"
)

// SlackNotifier sends messages to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Channel    string // optional override, e.g. "#data-alerts"
	Client     *http.Client
}

// Kind implements Notifier.
func (s *SlackNotifier) Kind() Kind { return KindSlack }

// Send posts the message to Slack with retry.
func (s *SlackNotifier) Send(ctx context.Context, msg Message) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook url missing")
	}

	payload := map[string]string{"text": msg.Text()}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}

	return deliverWebhook(ctx, KindSlack, s.Client, s.WebhookURL, payload)
}
