package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dashforge-backend/internal/alerting"
)

var dingTalkLabels = map[alerting.Severity]string{
	alerting.SeverityCritical: "🔴 Critical",
	alerting.SeverityWarning:  "🟡 Warning",
	alerting.SeverityInfo:     "🔵 Info",
}

type dingTalkPayload struct {
	MsgType  string           `json:"msgtype"`
	Markdown dingTalkMarkdown `json:"markdown"`
	At       dingTalkAt       `json:"at"`
}

type dingTalkMarkdown struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type dingTalkAt struct {
	AtMobiles []string `json:"atMobiles,omitempty"`
	IsAtAll   bool     `json:"isAtAll"`
}

type dingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// sendDingTalk posts a markdown card to a DingTalk robot webhook. DingTalk
// returns HTTP 200 even on rejection, so success is the embedded errcode.
func (d *Dispatcher) sendDingTalk(ctx context.Context, channel Channel, instance alerting.Instance) error {
	cfg := channel.DingTalk
	if cfg == nil || cfg.WebhookURL == "" {
		return fmt.Errorf("dingtalk channel %q has no webhook URL", channel.ID)
	}
	label, ok := dingTalkLabels[instance.Severity]
	if !ok {
		label = dingTalkLabels[alerting.SeverityInfo]
	}
	text := fmt.Sprintf("### %s\n\n%s\n\n> started %s",
		label, instance.Message, instance.StartedAt.UTC().Format(time.RFC3339))
	for _, mobile := range cfg.AtMobiles {
		text += fmt.Sprintf("\n\n@%s", mobile)
	}
	payload := dingTalkPayload{
		MsgType:  "markdown",
		Markdown: dingTalkMarkdown{Title: fmt.Sprintf("Alert %s", instance.Status), Text: text},
		At:       dingTalkAt{AtMobiles: cfg.AtMobiles, IsAtAll: cfg.AtAll},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal dingtalk payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.WebhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build dingtalk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send dingtalk notification: %w", err)
	}
	defer resp.Body.Close()
	var parsed dingTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode dingtalk response: %w", err)
	}
	if parsed.ErrCode != 0 {
		return fmt.Errorf("dingtalk rejected notification: errcode=%d errmsg=%s", parsed.ErrCode, parsed.ErrMsg)
	}
	return nil
}
