package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dashforge-backend/internal/datasource"
)

// Querier is the slice of the data-source registry the engine needs.
type Querier interface {
	Query(ctx context.Context, id string, q datasource.Query) (*datasource.Result, error)
}

var operatorPhrases = map[string]string{
	">":  "exceeds",
	"<":  "below",
	">=": "at or above",
	"<=": "at or below",
	"==": "equals",
	"!=": "deviates from",
}

var severityGlyphs = map[Severity]string{
	SeverityCritical: "🔴",
	SeverityWarning:  "🟡",
	SeverityInfo:     "🔵",
}

// Engine evaluates rules against their current metric value and tracks
// per-rule hysteresis state. Concurrent evaluations of the same rule id
// serialize on a per-rule mutex; different rules only share the map lock.
type Engine struct {
	queries Querier
	logger  *slog.Logger

	mu      sync.Mutex
	history map[string]*History
	locks   map[string]*sync.Mutex
}

func NewEngine(queries Querier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		queries: queries,
		logger:  logger,
		history: map[string]*History{},
		locks:   map[string]*sync.Mutex{},
	}
}

// Evaluate resolves the rule's current value, checks every condition
// (logical AND), updates the rule's history, and returns the outcome. Query
// failures never fail the call: the rule degrades to not-firing so an
// unreachable backend stays silent instead of raising false alarms.
func (e *Engine) Evaluate(ctx context.Context, rule Rule) Outcome {
	lock := e.ruleLock(rule.ID)
	lock.Lock()
	defer lock.Unlock()

	value := e.resolveValue(ctx, rule)

	firing := value != nil && len(rule.Conditions) > 0
	if firing {
		for _, cond := range rule.Conditions {
			if !conditionHolds(cond, *value) {
				firing = false
				break
			}
		}
	}

	e.mu.Lock()
	hist, ok := e.history[rule.ID]
	if !ok {
		hist = &History{}
		e.history[rule.ID] = hist
	}
	if firing {
		if hist.IsFiring {
			hist.ConsecutiveFiringCount++
		} else {
			hist.ConsecutiveFiringCount = 1
		}
	} else {
		hist.ConsecutiveFiringCount = 0
	}
	hist.IsFiring = firing
	if value != nil {
		hist.LastValue = *value
	}
	hist.LastEvaluatedAt = time.Now().UTC()
	evaluatedAt := hist.LastEvaluatedAt
	e.mu.Unlock()

	outcome := Outcome{
		RuleID:    rule.ID,
		Timestamp: evaluatedAt,
		IsFiring:  firing,
		Value:     value,
	}
	if firing {
		outcome.Message = firingMessage(rule, value)
	}
	return outcome
}

// resolveValue queries the rule's data source and picks the first numeric
// column of the last row. This is a deliberate simplification: when several
// numeric columns exist the leftmost wins, so rule queries should project a
// single metric column.
func (e *Engine) resolveValue(ctx context.Context, rule Rule) *float64 {
	if rule.DataSourceID == "" || rule.Query == "" {
		return nil
	}
	result, err := e.queries.Query(ctx, rule.DataSourceID, datasource.Query{Statement: rule.Query})
	if err != nil {
		e.logger.Warn("rule value query failed",
			slog.String("ruleId", rule.ID),
			slog.String("dataSourceId", rule.DataSourceID),
			slog.String("error", err.Error()))
		return nil
	}
	if len(result.Rows) == 0 {
		return nil
	}
	last := result.Rows[len(result.Rows)-1]
	for _, col := range result.Columns {
		if f, ok := datasource.Numeric(last[col]); ok {
			return &f
		}
	}
	e.logger.Warn("rule query returned no numeric column",
		slog.String("ruleId", rule.ID),
		slog.String("dataSourceId", rule.DataSourceID))
	return nil
}

func conditionHolds(cond Condition, value float64) bool {
	switch cond.Operator {
	case ">":
		return value > cond.Threshold
	case "<":
		return value < cond.Threshold
	case ">=":
		return value >= cond.Threshold
	case "<=":
		return value <= cond.Threshold
	case "==":
		return value == cond.Threshold
	case "!=":
		return value != cond.Threshold
	default:
		return false
	}
}

// firingMessage uses the first condition as the representative trigger.
func firingMessage(rule Rule, value *float64) string {
	cond := rule.Conditions[0]
	phrase, ok := operatorPhrases[cond.Operator]
	if !ok {
		phrase = cond.Operator
	}
	current := "N/A"
	if value != nil {
		current = fmt.Sprintf("%g", *value)
	}
	glyph := severityGlyphs[rule.Severity]
	if glyph == "" {
		glyph = severityGlyphs[SeverityInfo]
	}
	return fmt.Sprintf("%s %s: %s %s %g, current value: %s", glyph, rule.Name, cond.Metric, phrase, cond.Threshold, current)
}

// History returns a read-only snapshot, false if the rule was never
// evaluated.
func (e *Engine) History(ruleID string) (History, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hist, ok := e.history[ruleID]
	if !ok {
		return History{}, false
	}
	return *hist, true
}

// ClearHistory drops the rule's history and its lock, so a deleted rule
// leaves nothing behind.
func (e *Engine) ClearHistory(ruleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.history, ruleID)
	delete(e.locks, ruleID)
}

func (e *Engine) ClearAllHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = map[string]*History{}
	e.locks = map[string]*sync.Mutex{}
}

func (e *Engine) ruleLock(ruleID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[ruleID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[ruleID] = lock
	}
	return lock
}
