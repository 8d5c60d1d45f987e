package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WebhookGateway posts alert messages as JSON to a configured endpoint, for
// deployments that bridge to SMS or chat through their own relay.
type WebhookGateway struct {
	url    string
	client *http.Client
}

func NewWebhookGateway(url string) *WebhookGateway {
	return &WebhookGateway{url: url, client: &http.Client{}}
}

func (g *WebhookGateway) Send(ctx context.Context, text, mediaURL string) error {
	payload, err := json.Marshal(map[string]string{
		"text":      text,
		"media_url": mediaURL,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
