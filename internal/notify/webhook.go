package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const webhookAttempts = 3

// webhookBackoff is the wait before the second attempt; it doubles after that.
var webhookBackoff = 1 * time.Second

// webhookStatusError is a non-2xx webhook response.
type webhookStatusError struct {
	StatusCode int
	Detail     string
}

func (e *webhookStatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Detail)
}

// retryable is false for client errors other than rate limiting.
func (e *webhookStatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// deliverWebhook posts payload as JSON, retrying network errors, 429 and 5xx
// responses up to webhookAttempts times. Waits between attempts stop early
// when ctx is done. The final failure is returned as a *TransportError.
func deliverWebhook(ctx context.Context, channel Kind, client *http.Client, url string, payload any) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Channel: channel, Err: err}
	}

	var lastErr error
	wait := webhookBackoff
	for attempt := 1; attempt <= webhookAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return &TransportError{Channel: channel, Err: fmt.Errorf("canceled after %d attempt(s): %w", attempt-1, lastErr)}
			case <-time.After(wait):
			}
			wait *= 2
		}

		lastErr = postWebhook(ctx, client, url, body)
		if lastErr == nil {
			return nil
		}
		if statusErr, ok := lastErr.(*webhookStatusError); ok && !statusErr.retryable() {
			return &TransportError{Channel: channel, Err: lastErr}
		}
	}
	return &TransportError{Channel: channel, Err: fmt.Errorf("failed after %d attempts: %w", webhookAttempts, lastErr)}
}

func postWebhook(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &webhookStatusError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(snippet))}
	}
	return nil
}
