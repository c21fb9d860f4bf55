package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// WebhookNotifier delivers codes by POSTing them to a mail relay endpoint.
type WebhookNotifier struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewWebhookNotifier returns a notifier that posts to the given URL with the API key.
func NewWebhookNotifier(apiKey, baseURL string) *WebhookNotifier {
	return &WebhookNotifier{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SendCode posts the code for email to the relay. Does not log the code.
func (n *WebhookNotifier) SendCode(ctx context.Context, email, code string) error {
	if n.BaseURL == "" {
		return fmt.Errorf("notify: webhook URL not configured")
	}
	body := map[string]string{
		"to":   email,
		"code": code,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.APIKey != "" {
		req.Header.Set("Authorization", n.APIKey)
	}
	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
