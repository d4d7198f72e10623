package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// httpAdapter talks to a JSON HTTP API. Statements that look like a SELECT
// (or carry a ? placeholder) run through the WHERE translator; anything else
// is treated as a literal path under the base URL.
type httpAdapter struct {
	mu      sync.RWMutex
	client  *http.Client
	baseURL string
	headers map[string]string
	apiKey  string
	timeout time.Duration
}

func NewHTTPAdapter() Adapter {
	return &httpAdapter{}
}

func (a *httpAdapter) Connect(ctx context.Context, cfg Config) error {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return wrapConnectErr(KindHTTP, fmt.Errorf("base URL is required"))
	}
	if _, err := url.Parse(base); err != nil {
		return wrapConnectErr(KindHTTP, err)
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	a.mu.Lock()
	a.client = &http.Client{Timeout: cfg.Timeout()}
	a.baseURL = base
	a.headers = headers
	a.apiKey = cfg.APIKey
	a.timeout = cfg.Timeout()
	a.mu.Unlock()
	return nil
}

func (a *httpAdapter) Disconnect() error {
	a.mu.Lock()
	a.client = nil
	a.baseURL = ""
	a.mu.Unlock()
	return nil
}

func (a *httpAdapter) Test(ctx context.Context, cfg Config) TestResult {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return TestResult{Success: false, Message: "http: base URL is required"}
	}
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, base, nil)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("http: build probe request: %v", err)}
	}
	applyHeaders(req, cfg.Headers, cfg.APIKey)
	probe := &http.Client{Timeout: cfg.Timeout()}
	resp, err := probe.Do(req)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("http: probe failed: %v", err)}
	}
	resp.Body.Close()
	latency := time.Since(start).Milliseconds()
	if resp.StatusCode >= 500 {
		return TestResult{Success: false, Message: fmt.Sprintf("http: probe returned status %d", resp.StatusCode), LatencyMs: &latency}
	}
	return TestResult{Success: true, Message: "http connection ok", LatencyMs: &latency}
}

func (a *httpAdapter) Query(ctx context.Context, q Query) (*Result, error) {
	a.mu.RLock()
	client := a.client
	base := a.baseURL
	headers := a.headers
	apiKey := a.apiKey
	timeout := a.timeout
	a.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("%s: %w", KindHTTP, ErrNotConnected)
	}
	target, err := buildRequestURL(base, q)
	if err != nil {
		return nil, fmt.Errorf("http: translate query: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	req, err := http.NewRequestWithContext(queryCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, wrapQueryErr(KindHTTP, time.Since(start).Milliseconds(), err)
	}
	applyHeaders(req, headers, apiKey)
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := queryCtx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, wrapQueryErr(KindHTTP, time.Since(start).Milliseconds(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapQueryErr(KindHTTP, time.Since(start).Milliseconds(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, wrapQueryErr(KindHTTP, time.Since(start).Milliseconds(), fmt.Errorf("status %d", resp.StatusCode))
	}
	columns, rows, err := normalizeResponse(body)
	if err != nil {
		return nil, wrapQueryErr(KindHTTP, time.Since(start).Milliseconds(), err)
	}
	return &Result{
		Columns:    columns,
		Rows:       rows,
		RowCount:   len(rows),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func applyHeaders(req *http.Request, headers map[string]string, apiKey string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func buildRequestURL(base string, q Query) (string, error) {
	statement := strings.TrimSpace(q.Statement)
	if !looksLikeSelect(statement) {
		path := strings.TrimLeft(statement, "/")
		if path == "" {
			return base, nil
		}
		return base + "/" + path, nil
	}
	resource, params, err := TranslateSelect(statement, q.Parameters)
	if err != nil {
		return "", err
	}
	target := base
	if resource != "" {
		target += "/" + resource
	}
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target, nil
}

func looksLikeSelect(statement string) bool {
	upper := strings.ToUpper(statement)
	return strings.HasPrefix(upper, "SELECT") || strings.Contains(statement, "?")
}

// TranslateSelect turns a SELECT statement with an optional FROM resource and
// a flat `WHERE key = value [AND key2 = value2]` clause into query-string
// parameters. An IN (...) right-hand side becomes a repeated parameter; a ?
// placeholder consumes the next positional parameter.
func TranslateSelect(statement string, positional []any) (string, url.Values, error) {
	params := url.Values{}
	resource := ""
	upper := strings.ToUpper(statement)

	if idx := strings.Index(upper, "FROM "); idx >= 0 {
		rest := strings.TrimSpace(statement[idx+len("FROM "):])
		end := len(rest)
		if w := strings.Index(strings.ToUpper(rest), "WHERE "); w >= 0 {
			end = w
		}
		resource = strings.TrimSpace(rest[:end])
	}

	whereIdx := strings.Index(upper, "WHERE ")
	if whereIdx < 0 {
		return resource, params, nil
	}
	clause := strings.TrimSpace(statement[whereIdx+len("WHERE "):])
	nextParam := 0
	for _, part := range splitAnd(clause) {
		if inIdx := strings.Index(strings.ToUpper(part), " IN "); inIdx >= 0 {
			key := strings.TrimSpace(part[:inIdx])
			list := strings.TrimSpace(part[inIdx+len(" IN "):])
			list = strings.TrimPrefix(list, "(")
			list = strings.TrimSuffix(list, ")")
			for _, item := range strings.Split(list, ",") {
				params.Add(key, unquote(strings.TrimSpace(item)))
			}
			continue
		}
		eq := strings.Index(part, "=")
		if eq < 0 {
			return "", nil, fmt.Errorf("unsupported clause %q", part)
		}
		key := strings.TrimSpace(part[:eq])
		value := strings.TrimSpace(part[eq+1:])
		if value == "?" {
			if nextParam >= len(positional) {
				return "", nil, fmt.Errorf("missing positional parameter for %q", key)
			}
			value = fmt.Sprint(positional[nextParam])
			nextParam++
		} else {
			value = unquote(value)
		}
		params.Set(key, value)
	}
	return resource, params, nil
}

func splitAnd(clause string) []string {
	parts := []string{}
	upper := strings.ToUpper(clause)
	start := 0
	for {
		idx := strings.Index(upper[start:], " AND ")
		if idx < 0 {
			break
		}
		parts = append(parts, strings.TrimSpace(clause[start:start+idx]))
		start += idx + len(" AND ")
	}
	parts = append(parts, strings.TrimSpace(clause[start:]))
	return parts
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '\'' && value[len(value)-1] == '\'') || (value[0] == '"' && value[len(value)-1] == '"') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// normalizeResponse maps the three response shapes the dashboard backends are
// known to return into the universal Result layout.
func normalizeResponse(body []byte) ([]string, []map[string]any, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return []string{}, []map[string]any{}, nil
	}
	var asList []map[string]any
	if err := json.Unmarshal(body, &asList); err == nil {
		return columnsFromRows(asList), asList, nil
	}
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil, nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	if raw, ok := asObject["data"]; ok {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err == nil {
			if rawCols, ok := asObject["columns"]; ok {
				var cols []string
				if err := json.Unmarshal(rawCols, &cols); err == nil && len(cols) > 0 {
					return cols, rows, nil
				}
			}
			return columnsFromRows(rows), rows, nil
		}
	}
	var single map[string]any
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	return columnsFromRows([]map[string]any{single}), []map[string]any{single}, nil
}

func columnsFromRows(rows []map[string]any) []string {
	if len(rows) == 0 {
		return []string{}
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
