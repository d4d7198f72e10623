package notify

type ChannelType string

const (
	TypeEmail    ChannelType = "email"
	TypeWebhook  ChannelType = "webhook"
	TypeSlack    ChannelType = "slack"
	TypeDingTalk ChannelType = "dingtalk"
)

// Channel is a configured notification transport. Exactly one of the config
// fields is expected to be set, matching Type.
type Channel struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Type    ChannelType `json:"type"`
	Enabled bool        `json:"enabled"`

	Email    *EmailConfig    `json:"email,omitempty"`
	Webhook  *WebhookConfig  `json:"webhook,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
	DingTalk *DingTalkConfig `json:"dingtalk,omitempty"`
}

type EmailConfig struct {
	Recipients []string `json:"recipients"`
	From       string   `json:"from,omitempty"`
}

// WebhookConfig drives the generic HTTP channel. BodyTemplate placeholders
// ({{alertId}}, {{message}}, {{severity}}, {{status}}, {{startedAt}}) are
// substituted verbatim with no escaping; an empty template sends the default
// structured envelope.
type WebhookConfig struct {
	URL          string            `json:"url"`
	Method       string            `json:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyTemplate string            `json:"bodyTemplate,omitempty"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhookUrl"`
}

type DingTalkConfig struct {
	WebhookURL string   `json:"webhookUrl"`
	AtMobiles  []string `json:"atMobiles,omitempty"`
	AtAll      bool     `json:"atAll,omitempty"`
}
