package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"dashforge-backend/internal/alerting"
)

// Dispatcher renders and transmits alert instances over configured channels.
// It is stateless with respect to instance status transitions; it sends
// whatever instance it is given. Transport failures never escape Send: they
// are logged and reported as false.
type Dispatcher struct {
	client *http.Client
	mailer Mailer
	logger *slog.Logger
}

func NewDispatcher(mailer Mailer, logger *slog.Logger) *Dispatcher {
	if mailer == nil {
		mailer = &LogMailer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client: &http.Client{Timeout: 30 * time.Second},
		mailer: mailer,
		logger: logger,
	}
}

// Send returns true only when the channel accepted the notification. A
// disabled channel short-circuits to false before any transport work.
func (d *Dispatcher) Send(ctx context.Context, channel Channel, instance alerting.Instance) bool {
	if !channel.Enabled {
		return false
	}
	var err error
	switch channel.Type {
	case TypeEmail:
		err = d.sendEmail(ctx, channel, instance)
	case TypeWebhook:
		err = d.sendWebhook(ctx, channel, instance)
	case TypeSlack:
		err = d.sendSlack(ctx, channel, instance)
	case TypeDingTalk:
		err = d.sendDingTalk(ctx, channel, instance)
	default:
		err = fmt.Errorf("unknown channel type %q", channel.Type)
	}
	if err != nil {
		d.logger.Error("notification delivery failed",
			slog.String("channelId", channel.ID),
			slog.String("channelType", string(channel.Type)),
			slog.String("alertId", instance.ID),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// TestChannel routes a canonical low-severity test instance through Send so
// a channel configuration can be verified without a real incident.
func (d *Dispatcher) TestChannel(ctx context.Context, channel Channel) bool {
	now := time.Now().UTC()
	instance := alerting.Instance{
		ID:        uuid.NewString(),
		RuleID:    "channel-test",
		Status:    alerting.StatusFiring,
		Severity:  alerting.SeverityInfo,
		Message:   fmt.Sprintf("🔵 Test notification for channel %q", channel.Name),
		StartedAt: now,
	}
	return d.Send(ctx, channel, instance)
}
