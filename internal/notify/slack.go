package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dashforge-backend/internal/alerting"
)

var slackColors = map[alerting.Severity]string{
	alerting.SeverityCritical: "#d93025",
	alerting.SeverityWarning:  "#f2c744",
	alerting.SeverityInfo:     "#2eb67d",
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string `json:"color"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
	TS     int64  `json:"ts"`
}

// sendSlack posts a color-coded attachment card to a Slack incoming webhook.
// Slack answers plain "ok" with HTTP 200; anything else is a failure.
func (d *Dispatcher) sendSlack(ctx context.Context, channel Channel, instance alerting.Instance) error {
	cfg := channel.Slack
	if cfg == nil || cfg.WebhookURL == "" {
		return fmt.Errorf("slack channel %q has no webhook URL", channel.ID)
	}
	color, ok := slackColors[instance.Severity]
	if !ok {
		color = slackColors[alerting.SeverityInfo]
	}
	payload := slackPayload{Attachments: []slackAttachment{{
		Color:  color,
		Title:  fmt.Sprintf("Alert %s", instance.Status),
		Text:   instance.Message,
		Footer: channel.Name,
		TS:     instance.StartedAt.Unix(),
	}}}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.WebhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
