package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// sqlAdapter is the shared strategy behind the relational kinds. Each kind
// contributes a driver name and DSN builder; the pool itself belongs to the
// adapter instance, and instances are created per data-source id by the
// registry.
type sqlAdapter struct {
	kind     string
	driver   string
	buildDSN func(cfg Config) string

	mu      sync.RWMutex
	db      *sql.DB
	timeout time.Duration
}

func (a *sqlAdapter) Connect(ctx context.Context, cfg Config) error {
	db, err := sql.Open(a.driver, a.buildDSN(cfg))
	if err != nil {
		return wrapConnectErr(a.kind, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return wrapConnectErr(a.kind, err)
	}
	a.mu.Lock()
	old := a.db
	a.db = db
	a.timeout = cfg.Timeout()
	a.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func (a *sqlAdapter) Disconnect() error {
	a.mu.Lock()
	db := a.db
	a.db = nil
	a.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

// Test probes with a throwaway single-connection pool so that a probe can
// never perturb queries running against the primary pool.
func (a *sqlAdapter) Test(ctx context.Context, cfg Config) TestResult {
	start := time.Now()
	db, err := sql.Open(a.driver, a.buildDSN(cfg))
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("%s: open probe: %v", a.kind, err)}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("%s: probe failed: %v", a.kind, err)}
	}
	latency := time.Since(start).Milliseconds()
	return TestResult{Success: true, Message: fmt.Sprintf("%s connection ok", a.kind), LatencyMs: &latency}
}

// Query is bounded by the timeout captured at Connect, so a hung backend
// surfaces as ErrTimeout even when the caller passes a deadline-free context.
func (a *sqlAdapter) Query(ctx context.Context, q Query) (*Result, error) {
	a.mu.RLock()
	db := a.db
	timeout := a.timeout
	a.mu.RUnlock()
	if db == nil {
		return nil, fmt.Errorf("%s: %w", a.kind, ErrNotConnected)
	}
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	rows, err := db.QueryContext(queryCtx, q.Statement, q.Parameters...)
	if err != nil {
		// drivers report cancellation in their own vocabulary; the expired
		// context is the authoritative signal
		if ctxErr := queryCtx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, wrapQueryErr(a.kind, time.Since(start).Milliseconds(), err)
	}
	defer rows.Close()
	cols, mapped, err := scanRows(rows)
	if err != nil {
		return nil, wrapQueryErr(a.kind, time.Since(start).Milliseconds(), err)
	}
	if len(mapped) == 0 {
		cols = []string{}
	}
	return &Result{
		Columns:    cols,
		Rows:       mapped,
		RowCount:   len(mapped),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
