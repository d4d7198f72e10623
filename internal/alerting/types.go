package alerting

import "time"

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Condition compares the resolved metric value against a threshold.
// DurationSeconds is advisory: the engine exposes the consecutive-firing
// counter instead of enforcing wall-clock persistence.
type Condition struct {
	Metric          string  `json:"metric"`
	Operator        string  `json:"operator"`
	Threshold       float64 `json:"threshold"`
	DurationSeconds int     `json:"durationSeconds,omitempty"`
}

// Rule fires only when every condition holds against the single resolved
// value; there is no OR or grouping.
type Rule struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Severity     Severity    `json:"severity"`
	Enabled      bool        `json:"enabled"`
	Conditions   []Condition `json:"conditions"`
	DataSourceID string      `json:"dataSourceId,omitempty"`
	Query        string      `json:"query,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// History is the per-rule hysteresis record, owned and mutated exclusively
// by the engine; callers only ever see snapshots. LastValue holds the most
// recent resolved sample: an evaluation whose value could not be resolved
// leaves it untouched, while LastEvaluatedAt always advances.
type History struct {
	IsFiring               bool      `json:"isFiring"`
	ConsecutiveFiringCount int       `json:"consecutiveFiringCount"`
	LastValue              float64   `json:"lastValue"`
	LastEvaluatedAt        time.Time `json:"lastEvaluatedAt"`
}

// Outcome is produced per Evaluate call and not retained by the engine.
type Outcome struct {
	RuleID    string    `json:"ruleId"`
	Timestamp time.Time `json:"timestamp"`
	IsFiring  bool      `json:"isFiring"`
	Value     *float64  `json:"value,omitempty"`
	Message   string    `json:"message,omitempty"`
}

type InstanceStatus string

const (
	StatusPending  InstanceStatus = "pending"
	StatusFiring   InstanceStatus = "firing"
	StatusResolved InstanceStatus = "resolved"
	StatusMuted    InstanceStatus = "muted"
)

// Instance is the alert-instance payload handed to the notification
// dispatcher; its status transitions are decided outside the engine.
type Instance struct {
	ID        string         `json:"id"`
	RuleID    string         `json:"ruleId"`
	Status    InstanceStatus `json:"status"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`
}
