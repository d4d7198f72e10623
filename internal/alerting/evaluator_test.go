package alerting

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"dashforge-backend/internal/datasource"
)

// stubQuerier returns a canned value per data-source id, or an error.
type stubQuerier struct {
	mu     sync.Mutex
	values map[string]float64
	rows   map[string]*datasource.Result
	err    error
	calls  int
}

func (s *stubQuerier) Query(ctx context.Context, id string, q datasource.Query) (*datasource.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.rows[id]; ok {
		return r, nil
	}
	v, ok := s.values[id]
	if !ok {
		return nil, datasource.ErrNotConnected
	}
	return &datasource.Result{
		Columns:  []string{"value"},
		Rows:     []map[string]any{{"value": v}},
		RowCount: 1,
	}, nil
}

func (s *stubQuerier) set(id string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = map[string]float64{}
	}
	s.values[id] = v
}

func testRule(id string, operator string, threshold float64) Rule {
	return Rule{
		ID:           id,
		Name:         "cpu check",
		Severity:     SeverityCritical,
		Enabled:      true,
		DataSourceID: "ds1",
		Query:        "SELECT value FROM metrics",
		Conditions:   []Condition{{Metric: "cpu", Operator: operator, Threshold: threshold}},
	}
}

func TestEvaluateOperators(t *testing.T) {
	tests := []struct {
		operator  string
		threshold float64
		value     float64
		firing    bool
	}{
		{">", 90, 95, true},
		{">", 90, 90, false},
		{"<", 10, 5, true},
		{"<", 10, 10, false},
		{">=", 90, 90, true},
		{">=", 90, 89.9, false},
		{"<=", 10, 10, true},
		{"<=", 10, 10.1, false},
		{"==", 0, 0, true},
		{"==", 0, 0.1, false},
		{"!=", 0, 0.1, true},
		{"!=", 0, 0, false},
	}
	for _, tt := range tests {
		q := &stubQuerier{}
		q.set("ds1", tt.value)
		engine := NewEngine(q, nil)
		outcome := engine.Evaluate(context.Background(), testRule("r1", tt.operator, tt.threshold))
		if outcome.IsFiring != tt.firing {
			t.Fatalf("value %v %s %v: firing = %v, want %v", tt.value, tt.operator, tt.threshold, outcome.IsFiring, tt.firing)
		}
		if outcome.Value == nil || *outcome.Value != tt.value {
			t.Fatalf("outcome value = %v, want %v", outcome.Value, tt.value)
		}
	}
}

func TestEvaluateUnknownOperatorNeverFires(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 100)
	engine := NewEngine(q, nil)
	outcome := engine.Evaluate(context.Background(), testRule("r1", "~", 1))
	if outcome.IsFiring {
		t.Fatalf("unknown operator must not fire")
	}
}

func TestEvaluateAllConditionsMustHold(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 50)
	engine := NewEngine(q, nil)
	rule := testRule("r1", ">", 10)
	rule.Conditions = append(rule.Conditions, Condition{Metric: "cpu", Operator: "<", Threshold: 40})
	if engine.Evaluate(context.Background(), rule).IsFiring {
		t.Fatalf("rule fired with one failing condition")
	}
	rule.Conditions[1].Threshold = 60
	if !engine.Evaluate(context.Background(), rule).IsFiring {
		t.Fatalf("rule did not fire with all conditions holding")
	}
}

func TestEvaluateEmptyConditionsNeverFires(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 100)
	engine := NewEngine(q, nil)
	rule := testRule("r1", ">", 0)
	rule.Conditions = nil
	if engine.Evaluate(context.Background(), rule).IsFiring {
		t.Fatalf("rule with no conditions must not fire")
	}
}

func TestEvaluateConsecutiveFiringCount(t *testing.T) {
	q := &stubQuerier{}
	engine := NewEngine(q, nil)
	rule := testRule("r1", ">", 90)

	sequence := []struct {
		value float64
		count int
	}{
		{95, 1},
		{96, 2},
		{97, 3},
		{50, 0},
		{99, 1},
	}
	for i, step := range sequence {
		q.set("ds1", step.value)
		engine.Evaluate(context.Background(), rule)
		hist, ok := engine.History("r1")
		if !ok {
			t.Fatalf("step %d: history missing", i)
		}
		if hist.ConsecutiveFiringCount != step.count {
			t.Fatalf("step %d: count = %d, want %d", i, hist.ConsecutiveFiringCount, step.count)
		}
		if hist.LastValue != step.value {
			t.Fatalf("step %d: lastValue = %v, want %v", i, hist.LastValue, step.value)
		}
	}
}

func TestEvaluateQueryErrorDegradesToNotFiring(t *testing.T) {
	q := &stubQuerier{err: errors.New("backend unreachable")}
	engine := NewEngine(q, nil)
	rule := testRule("r1", ">", 0)

	outcome := engine.Evaluate(context.Background(), rule)
	if outcome.IsFiring {
		t.Fatalf("query failure must not fire")
	}
	if outcome.Value != nil {
		t.Fatalf("expected nil value on query failure")
	}
	hist, ok := engine.History("r1")
	if !ok || hist.ConsecutiveFiringCount != 0 {
		t.Fatalf("history = %+v, ok = %v", hist, ok)
	}
	if hist.LastEvaluatedAt.IsZero() {
		t.Fatalf("failed evaluation must still be timestamped")
	}
}

func TestEvaluateQueryErrorResetsStreak(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 95)
	engine := NewEngine(q, nil)
	rule := testRule("r1", ">", 90)

	engine.Evaluate(context.Background(), rule)
	engine.Evaluate(context.Background(), rule)

	q.mu.Lock()
	q.err = errors.New("timeout")
	q.mu.Unlock()
	engine.Evaluate(context.Background(), rule)

	hist, _ := engine.History("r1")
	if hist.IsFiring || hist.ConsecutiveFiringCount != 0 {
		t.Fatalf("history after failure = %+v", hist)
	}
	if hist.LastValue != 95 {
		t.Fatalf("lastValue must survive a failed query, got %v", hist.LastValue)
	}
}

func TestEvaluateNoRowsOrNoNumericColumn(t *testing.T) {
	q := &stubQuerier{rows: map[string]*datasource.Result{
		"ds1": {Columns: []string{}, Rows: []map[string]any{}},
	}}
	engine := NewEngine(q, nil)
	rule := testRule("r1", ">", 0)
	outcome := engine.Evaluate(context.Background(), rule)
	if outcome.IsFiring || outcome.Value != nil {
		t.Fatalf("empty result must degrade to not-firing")
	}

	q.rows["ds1"] = &datasource.Result{
		Columns:  []string{"label"},
		Rows:     []map[string]any{{"label": "text only"}},
		RowCount: 1,
	}
	outcome = engine.Evaluate(context.Background(), rule)
	if outcome.IsFiring || outcome.Value != nil {
		t.Fatalf("non-numeric row must degrade to not-firing")
	}
}

func TestEvaluatePicksLastRowFirstNumericColumn(t *testing.T) {
	q := &stubQuerier{rows: map[string]*datasource.Result{
		"ds1": {
			Columns: []string{"label", "cpu", "mem"},
			Rows: []map[string]any{
				{"label": "old", "cpu": 10.0, "mem": 1.0},
				{"label": "new", "cpu": 95.0, "mem": 2.0},
			},
			RowCount: 2,
		},
	}}
	engine := NewEngine(q, nil)
	outcome := engine.Evaluate(context.Background(), testRule("r1", ">", 90))
	if outcome.Value == nil || *outcome.Value != 95.0 {
		t.Fatalf("value = %v, want 95 (last row, first numeric column)", outcome.Value)
	}
	if !outcome.IsFiring {
		t.Fatalf("expected firing")
	}
}

func TestFiringMessage(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 95.5)
	engine := NewEngine(q, nil)
	rule := testRule("r1", ">", 90)
	outcome := engine.Evaluate(context.Background(), rule)
	want := "🔴 cpu check: cpu exceeds 90, current value: 95.5"
	if outcome.Message != want {
		t.Fatalf("message = %q, want %q", outcome.Message, want)
	}

	rule.Severity = SeverityWarning
	rule.Conditions[0].Operator = ">="
	if msg := engine.Evaluate(context.Background(), rule).Message; !strings.HasPrefix(msg, "🟡 ") || !strings.Contains(msg, "at or above") {
		t.Fatalf("message = %q", msg)
	}
}

func TestEvaluateNotFiringHasNoMessage(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 10)
	engine := NewEngine(q, nil)
	outcome := engine.Evaluate(context.Background(), testRule("r1", ">", 90))
	if outcome.Message != "" {
		t.Fatalf("quiet outcome must carry no message, got %q", outcome.Message)
	}
}

func TestClearHistory(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 95)
	engine := NewEngine(q, nil)
	engine.Evaluate(context.Background(), testRule("r1", ">", 90))
	engine.Evaluate(context.Background(), testRule("r2", ">", 90))

	engine.ClearHistory("r1")
	if _, ok := engine.History("r1"); ok {
		t.Fatalf("r1 history should be gone")
	}
	if _, ok := engine.History("r2"); !ok {
		t.Fatalf("r2 history should survive")
	}

	engine.ClearAllHistory()
	if _, ok := engine.History("r2"); ok {
		t.Fatalf("all history should be gone")
	}
}

func TestClearHistoryPrunesLocks(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 95)
	engine := NewEngine(q, nil)
	engine.Evaluate(context.Background(), testRule("r1", ">", 90))
	engine.Evaluate(context.Background(), testRule("r2", ">", 90))

	engine.ClearHistory("r1")
	engine.mu.Lock()
	_, r1 := engine.locks["r1"]
	_, r2 := engine.locks["r2"]
	engine.mu.Unlock()
	if r1 {
		t.Fatalf("r1 lock should be pruned with its history")
	}
	if !r2 {
		t.Fatalf("r2 lock should survive")
	}

	engine.ClearAllHistory()
	engine.mu.Lock()
	remaining := len(engine.locks)
	engine.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("locks remaining after full clear: %d", remaining)
	}
}

func TestEvaluateConcurrentRules(t *testing.T) {
	q := &stubQuerier{}
	q.set("ds1", 95)
	engine := NewEngine(q, nil)

	const rounds = 50
	var wg sync.WaitGroup
	for _, id := range []string{"r1", "r2", "r3"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			rule := testRule(id, ">", 90)
			for i := 0; i < rounds; i++ {
				engine.Evaluate(context.Background(), rule)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"r1", "r2", "r3"} {
		hist, ok := engine.History(id)
		if !ok {
			t.Fatalf("%s: history missing", id)
		}
		if hist.ConsecutiveFiringCount != rounds {
			t.Fatalf("%s: count = %d, want %d", id, hist.ConsecutiveFiringCount, rounds)
		}
	}
}
