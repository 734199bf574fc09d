// server/internal/notify/notifier.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"waste-pickup-api-server/config"
)

// Alert is the contamination alert payload sent to the dispatch webhook.
type Alert struct {
	WasteType  string    `json:"wasteType"`
	Location   string    `json:"location"`
	Score      float64   `json:"score"`
	Label      string    `json:"label"`
	DetectedAt time.Time `json:"detectedAt"`
	ImageURL   string    `json:"imageUrl,omitempty"`
}

// WebhookNotifier delivers contamination alerts to a dispatch webhook,
// addressed to the driver contact responsible for the alert's waste type.
type WebhookNotifier struct {
	webhookURL       string
	recipients       map[string]string
	defaultRecipient string
	http             *http.Client
}

func NewWebhookNotifier(cfg config.NotifierConfig) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL:       cfg.WebhookURL,
		recipients:       cfg.Recipients,
		defaultRecipient: cfg.DefaultRecipient,
		http:             &http.Client{Timeout: 10 * time.Second},
	}
}

// RecipientFor resolves the driver contact for a waste type, falling back to
// the configured default.
func (n *WebhookNotifier) RecipientFor(wasteType string) string {
	if r, ok := n.recipients[strings.ToLower(wasteType)]; ok && r != "" {
		return r
	}
	return n.defaultRecipient
}

// SendAlert posts the alert to the webhook. Callers treat delivery as best
// effort; a returned error is logged, never surfaced to the requester.
func (n *WebhookNotifier) SendAlert(ctx context.Context, alert Alert) error {
	if n.webhookURL == "" {
		return fmt.Errorf("alert webhook URL is not configured")
	}
	recipient := n.RecipientFor(alert.WasteType)
	if recipient == "" {
		return fmt.Errorf("no driver contact configured for waste type %q", alert.WasteType)
	}

	payload := struct {
		Recipient string `json:"recipient"`
		Subject   string `json:"subject"`
		Alert
	}{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Contamination Alert - %s Waste", strings.ToUpper(alert.WasteType)),
		Alert:     alert,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}
