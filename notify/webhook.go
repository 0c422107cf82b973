package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kosoku-tracker/models"
	"kosoku-tracker/utils"
)

// Notifier delivers alerts to a chat webhook destination.
type Notifier interface {
	SendAlert(ctx context.Context, webhookURL string, alert *models.Alert) error
	SendStartup(ctx context.Context, webhookURL string, userCount, routeCount int) error
}

const (
	webhookTimeout = 10 * time.Second

	colorAvailable = 0x2ecc71
	colorStartup   = 0x3498db
)

// WebhookNotifier posts Discord-compatible embed payloads.
type WebhookNotifier struct {
	http   *http.Client
	logger *utils.Logger
}

// NewWebhookNotifier creates a WebhookNotifier with the given logger.
func NewWebhookNotifier(logger *utils.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		http:   &http.Client{Timeout: webhookTimeout},
		logger: logger,
	}
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// SendAlert formats the alert as one embed with a field per schedule+plan
// pair and posts it to the webhook.
func (n *WebhookNotifier) SendAlert(ctx context.Context, webhookURL string, alert *models.Alert) error {
	e := embed{
		Title:       alert.Title,
		Description: alert.Description,
		Color:       colorAvailable,
	}
	for _, line := range alert.Lines {
		e.Fields = append(e.Fields, embedField{
			Name:  fmt.Sprintf("%s  %s → %s", line.Date, line.DepartureTime, line.ArrivalTime),
			Value: fmt.Sprintf("%s — %s", line.SeatText, line.PriceText),
		})
	}
	if alert.Footer != "" {
		e.Footer = &embedFooter{Text: alert.Footer}
	}

	return n.post(ctx, webhookURL, webhookPayload{Embeds: []embed{e}})
}

// SendStartup posts the tracking summary sent once per distinct webhook
// destination when the process starts.
func (n *WebhookNotifier) SendStartup(ctx context.Context, webhookURL string, userCount, routeCount int) error {
	e := embed{
		Title: "Seat tracker online",
		Description: fmt.Sprintf("Tracking %d route(s) for %d user(s).",
			routeCount, userCount),
		Color: colorStartup,
	}
	return n.post(ctx, webhookURL, webhookPayload{Embeds: []embed{e}})
}

func (n *WebhookNotifier) post(ctx context.Context, webhookURL string, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("[notify] delivered webhook payload (%d bytes)", len(body))
	return nil
}
