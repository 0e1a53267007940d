package notify

import (
	"context"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// discordContentLimit is Discord's maximum message length.
const discordContentLimit = 2000

// DiscordNotifier sends messages to a Discord webhook.
type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
}

// Kind implements Notifier.
func (d *DiscordNotifier) Kind() Kind { return KindDiscord }

// Send posts the message to Discord with retry.
func (d *DiscordNotifier) Send(ctx context.Context, msg Message) error {
	if d.WebhookURL == "" {
		return fmt.Errorf("discord webhook url missing")
	}

	payload := map[string]string{"content": truncateRunes(msg.Text(), discordContentLimit)}

	return deliverWebhook(ctx, KindDiscord, d.Client, d.WebhookURL, payload)
}

// truncateRunes shortens s to at most limit characters, ending in "...".
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
