package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dashforge-backend/internal/alerting"
	"dashforge-backend/internal/bus"
	"dashforge-backend/internal/notify"
	"dashforge-backend/internal/storage"
)

// pipeline is the alert-instance manager around the engine: it decides when
// a rule's firing streak crosses the threshold that opens an instance, when
// a quiet rule closes one, and fans notifications out to the rule's bound
// channels.
type pipeline struct {
	engine     *alerting.Engine
	dispatcher *notify.Dispatcher
	repo       *storage.Repository
	publisher  *bus.Publisher
	logger     *slog.Logger

	// defaultStreak is how many consecutive firing evaluations open an
	// instance when the rule does not set its own.
	defaultStreak int
}

func (p *pipeline) evaluateRule(ctx context.Context, rule alerting.Rule, streakRequired int) {
	outcome := p.engine.Evaluate(ctx, rule)
	hist, ok := p.engine.History(rule.ID)
	if !ok {
		return
	}
	if streakRequired <= 0 {
		streakRequired = p.defaultStreak
	}

	openID, err := p.repo.OpenInstanceForRule(ctx, rule.ID)
	if err != nil {
		p.logger.Error("open instance lookup failed", slog.String("ruleId", rule.ID), slog.String("error", err.Error()))
		return
	}

	switch {
	case outcome.IsFiring && hist.ConsecutiveFiringCount >= streakRequired && openID == "":
		p.openInstance(ctx, rule, outcome)
	case !outcome.IsFiring && openID != "":
		p.closeInstance(ctx, rule, openID)
	}
}

func (p *pipeline) openInstance(ctx context.Context, rule alerting.Rule, outcome alerting.Outcome) {
	instance := alerting.Instance{
		RuleID:    rule.ID,
		Status:    alerting.StatusFiring,
		Severity:  rule.Severity,
		Message:   outcome.Message,
		StartedAt: outcome.Timestamp,
	}
	id, err := p.repo.CreateInstance(ctx, storage.InstanceRecord{
		RuleID:    instance.RuleID,
		Status:    string(instance.Status),
		Severity:  string(instance.Severity),
		Message:   instance.Message,
		StartedAt: instance.StartedAt,
	})
	if err != nil {
		p.logger.Error("create alert instance failed", slog.String("ruleId", rule.ID), slog.String("error", err.Error()))
		return
	}
	instance.ID = id
	p.notifyChannels(ctx, rule, instance)
	p.publish(bus.SubjectAlertFired, instance)
}

func (p *pipeline) closeInstance(ctx context.Context, rule alerting.Rule, instanceID string) {
	endedAt := time.Now().UTC()
	if err := p.repo.ResolveInstance(ctx, instanceID, endedAt); err != nil {
		p.logger.Error("resolve alert instance failed", slog.String("ruleId", rule.ID), slog.String("error", err.Error()))
		return
	}
	instance := alerting.Instance{
		ID:        instanceID,
		RuleID:    rule.ID,
		Status:    alerting.StatusResolved,
		Severity:  rule.Severity,
		Message:   fmt.Sprintf("✅ %s: resolved", rule.Name),
		StartedAt: endedAt,
		EndedAt:   &endedAt,
	}
	p.notifyChannels(ctx, rule, instance)
	p.publish(bus.SubjectAlertResolved, instance)
}

func (p *pipeline) notifyChannels(ctx context.Context, rule alerting.Rule, instance alerting.Instance) {
	records, err := p.repo.ListChannelsForRule(ctx, rule.ID)
	if err != nil {
		p.logger.Error("list channels failed", slog.String("ruleId", rule.ID), slog.String("error", err.Error()))
		return
	}
	for _, rec := range records {
		channel, err := channelFromRecord(rec)
		if err != nil {
			p.logger.Error("invalid channel config", slog.String("channelId", rec.ID), slog.String("error", err.Error()))
			continue
		}
		if !p.dispatcher.Send(ctx, channel, instance) {
			p.logger.Warn("notification not delivered",
				slog.String("channelId", rec.ID),
				slog.String("alertId", instance.ID))
		}
	}
}

func (p *pipeline) publish(subject string, instance alerting.Instance) {
	if p.publisher == nil {
		return
	}
	event := bus.AlertEvent{
		InstanceID: instance.ID,
		RuleID:     instance.RuleID,
		Status:     string(instance.Status),
		Severity:   string(instance.Severity),
		Message:    instance.Message,
		Timestamp:  time.Now().UTC(),
	}
	if err := p.publisher.Publish(subject, event); err != nil {
		p.logger.Error("publish alert event failed", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

func channelFromRecord(rec storage.ChannelRecord) (notify.Channel, error) {
	channel := notify.Channel{
		ID:      rec.ID,
		Name:    rec.Name,
		Type:    notify.ChannelType(rec.Type),
		Enabled: rec.Enabled,
	}
	switch channel.Type {
	case notify.TypeEmail:
		channel.Email = &notify.EmailConfig{}
		return channel, json.Unmarshal(rec.ConfigJSON, channel.Email)
	case notify.TypeWebhook:
		channel.Webhook = &notify.WebhookConfig{}
		return channel, json.Unmarshal(rec.ConfigJSON, channel.Webhook)
	case notify.TypeSlack:
		channel.Slack = &notify.SlackConfig{}
		return channel, json.Unmarshal(rec.ConfigJSON, channel.Slack)
	case notify.TypeDingTalk:
		channel.DingTalk = &notify.DingTalkConfig{}
		return channel, json.Unmarshal(rec.ConfigJSON, channel.DingTalk)
	default:
		return notify.Channel{}, fmt.Errorf("unknown channel type %q", rec.Type)
	}
}

func ruleFromRecord(rec storage.RuleRecord) (alerting.Rule, error) {
	rule := alerting.Rule{
		ID:           rec.ID,
		Name:         rec.Name,
		Severity:     alerting.Severity(rec.Severity),
		Enabled:      rec.Enabled,
		DataSourceID: rec.DataSourceID,
		Query:        rec.Query,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if len(rec.ConditionsJSON) > 0 {
		if err := json.Unmarshal(rec.ConditionsJSON, &rule.Conditions); err != nil {
			return alerting.Rule{}, fmt.Errorf("decode conditions for rule %s: %w", rec.ID, err)
		}
	}
	return rule, nil
}
