package datasource

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// fileAdapter reads a local CSV or JSON file and materializes it fully; file
// kinds have no query language, so the statement is ignored.
type fileAdapter struct {
	kind string

	mu   sync.RWMutex
	path string
}

func NewCSVAdapter() Adapter {
	return &fileAdapter{kind: KindCSV}
}

func NewJSONAdapter() Adapter {
	return &fileAdapter{kind: KindJSON}
}

func (a *fileAdapter) Connect(ctx context.Context, cfg Config) error {
	if cfg.FilePath == "" {
		return wrapConnectErr(a.kind, fmt.Errorf("file path is required"))
	}
	if _, err := os.Stat(cfg.FilePath); err != nil {
		return wrapConnectErr(a.kind, err)
	}
	a.mu.Lock()
	a.path = cfg.FilePath
	a.mu.Unlock()
	return nil
}

func (a *fileAdapter) Disconnect() error {
	a.mu.Lock()
	a.path = ""
	a.mu.Unlock()
	return nil
}

func (a *fileAdapter) Test(ctx context.Context, cfg Config) TestResult {
	start := time.Now()
	info, err := os.Stat(cfg.FilePath)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("%s: %v", a.kind, err)}
	}
	if info.IsDir() {
		return TestResult{Success: false, Message: fmt.Sprintf("%s: %s is a directory", a.kind, cfg.FilePath)}
	}
	latency := time.Since(start).Milliseconds()
	return TestResult{Success: true, Message: fmt.Sprintf("%s file readable", a.kind), LatencyMs: &latency}
}

func (a *fileAdapter) Query(ctx context.Context, q Query) (*Result, error) {
	a.mu.RLock()
	path := a.path
	a.mu.RUnlock()
	if path == "" {
		return nil, fmt.Errorf("%s: %w", a.kind, ErrNotConnected)
	}
	start := time.Now()
	var columns []string
	var rows []map[string]any
	var err error
	switch a.kind {
	case KindCSV:
		columns, rows, err = readCSV(path)
	default:
		columns, rows, err = readJSONFile(path)
	}
	if err != nil {
		return nil, wrapQueryErr(a.kind, time.Since(start).Milliseconds(), err)
	}
	return &Result{
		Columns:    columns,
		Rows:       rows,
		RowCount:   len(rows),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func readCSV(path string) ([]string, []map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return []string{}, []map[string]any{}, nil
	}
	columns := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		columns = []string{}
	}
	return columns, rows, nil
}

func readJSONFile(path string) ([]string, []map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, nil, fmt.Errorf("expected a JSON array of objects: %w", err)
	}
	return columnsFromRows(rows), rows, nil
}
