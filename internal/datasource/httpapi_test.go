package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestTranslateSelectWhereClause(t *testing.T) {
	resource, params, err := TranslateSelect("SELECT * WHERE status = 'active' AND age = 30", nil)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resource != "" {
		t.Fatalf("expected empty resource, got %q", resource)
	}
	if got := params.Get("status"); got != "active" {
		t.Fatalf("status = %q, want %q", got, "active")
	}
	if got := params.Get("age"); got != "30" {
		t.Fatalf("age = %q, want %q", got, "30")
	}
}

func TestTranslateSelectFromAndIn(t *testing.T) {
	resource, params, err := TranslateSelect("SELECT * FROM metrics WHERE region IN ('eu', 'us') AND env = ?", []any{"prod"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resource != "metrics" {
		t.Fatalf("resource = %q, want %q", resource, "metrics")
	}
	if got := params["region"]; !reflect.DeepEqual(got, []string{"eu", "us"}) {
		t.Fatalf("region = %v, want [eu us]", got)
	}
	if got := params.Get("env"); got != "prod" {
		t.Fatalf("env = %q, want %q", got, "prod")
	}
}

func TestTranslateSelectMissingPositional(t *testing.T) {
	if _, _, err := TranslateSelect("SELECT * WHERE env = ?", nil); err == nil {
		t.Fatalf("expected error for missing positional parameter")
	}
}

func TestHTTPAdapterQuery(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"value": 42, "host": "db1"}]`))
	}))
	defer server.Close()

	a := NewHTTPAdapter()
	cfg := Config{Kind: KindHTTP, BaseURL: server.URL, APIKey: "secret"}
	if err := a.Connect(context.Background(), cfg); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer a.Disconnect()

	result, err := a.Query(context.Background(), Query{Statement: "SELECT * FROM metrics WHERE host = 'db1'"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if gotPath != "/metrics" {
		t.Fatalf("path = %q, want /metrics", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotQuery != "host=db1" {
		t.Fatalf("query string = %q", gotQuery)
	}
	if result.RowCount != 1 {
		t.Fatalf("rowCount = %d, want 1", result.RowCount)
	}
	if !reflect.DeepEqual(result.Columns, []string{"host", "value"}) {
		t.Fatalf("columns = %v", result.Columns)
	}
}

func TestHTTPAdapterQueryPathStatement(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"data": [{"v": 1}], "columns": ["v"]}`))
	}))
	defer server.Close()

	a := NewHTTPAdapter()
	if err := a.Connect(context.Background(), Config{Kind: KindHTTP, BaseURL: server.URL}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	result, err := a.Query(context.Background(), Query{Statement: "/api/stats"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if gotPath != "/api/stats" {
		t.Fatalf("path = %q", gotPath)
	}
	if !reflect.DeepEqual(result.Columns, []string{"v"}) {
		t.Fatalf("columns = %v", result.Columns)
	}
}

func TestHTTPAdapterQueryErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	a := NewHTTPAdapter()
	if err := a.Connect(context.Background(), Config{Kind: KindHTTP, BaseURL: server.URL}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := a.Query(context.Background(), Query{Statement: "/boom"}); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestHTTPAdapterQueryTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	a := NewHTTPAdapter()
	if err := a.Connect(context.Background(), Config{Kind: KindHTTP, BaseURL: server.URL, TimeoutSeconds: 1}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	start := time.Now()
	_, err := a.Query(context.Background(), Query{Statement: "/slow"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("query ran %v, the configured timeout did not bound it", elapsed)
	}
}

func TestHTTPAdapterQueryNotConnected(t *testing.T) {
	a := NewHTTPAdapter()
	_, err := a.Query(context.Background(), Query{Statement: "/x"})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestHTTPAdapterTest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	a := NewHTTPAdapter()
	result := a.Test(context.Background(), Config{Kind: KindHTTP, BaseURL: server.URL})
	if !result.Success {
		t.Fatalf("4xx probe should still count as reachable: %s", result.Message)
	}
	if result.LatencyMs == nil {
		t.Fatalf("expected latency measurement")
	}

	server.Close()
	result = a.Test(context.Background(), Config{Kind: KindHTTP, BaseURL: server.URL, TimeoutSeconds: 1})
	if result.Success {
		t.Fatalf("expected probe failure after server shutdown")
	}
}

func TestNormalizeResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCols []string
		wantRows int
	}{
		{"array", `[{"a": 1}, {"a": 2}]`, []string{"a"}, 2},
		{"envelope", `{"data": [{"a": 1}], "columns": ["a"]}`, []string{"a"}, 1},
		{"envelope without columns", `{"data": [{"b": 1, "a": 2}]}`, []string{"a", "b"}, 1},
		{"single object", `{"count": 7}`, []string{"count"}, 1},
		{"empty body", ``, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, rows, err := normalizeResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if !reflect.DeepEqual(cols, tt.wantCols) {
				t.Fatalf("columns = %v, want %v", cols, tt.wantCols)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("rows = %d, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestNormalizeResponseRejectsScalar(t *testing.T) {
	if _, _, err := normalizeResponse([]byte(`42`)); err == nil {
		t.Fatalf("expected error for scalar response")
	}
}
