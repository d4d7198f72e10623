package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dashforge-backend/internal/alerting"
)

type webhookEnvelope struct {
	Alert webhookAlert `json:"alert"`
}

type webhookAlert struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

func (d *Dispatcher) sendWebhook(ctx context.Context, channel Channel, instance alerting.Instance) error {
	cfg := channel.Webhook
	if cfg == nil || cfg.URL == "" {
		return fmt.Errorf("webhook channel %q has no URL", channel.ID)
	}
	body, err := webhookBody(cfg, instance)
	if err != nil {
		return err
	}
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func webhookBody(cfg *WebhookConfig, instance alerting.Instance) ([]byte, error) {
	if cfg.BodyTemplate != "" {
		return []byte(RenderTemplate(cfg.BodyTemplate, instance)), nil
	}
	envelope := webhookEnvelope{Alert: webhookAlert{
		ID:        instance.ID,
		Status:    string(instance.Status),
		Severity:  string(instance.Severity),
		Message:   instance.Message,
		StartedAt: instance.StartedAt,
		EndedAt:   instance.EndedAt,
	}}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook envelope: %w", err)
	}
	return data, nil
}

// RenderTemplate substitutes instance fields into a user-supplied body
// template. Values go in verbatim with no escaping; guarding against broken
// JSON is the template author's responsibility.
func RenderTemplate(template string, instance alerting.Instance) string {
	replacer := strings.NewReplacer(
		"{{alertId}}", instance.ID,
		"{{message}}", instance.Message,
		"{{severity}}", string(instance.Severity),
		"{{status}}", string(instance.Status),
		"{{startedAt}}", instance.StartedAt.UTC().Format(time.RFC3339),
	)
	return replacer.Replace(template)
}
