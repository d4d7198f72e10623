package datasource

import "time"

const (
	KindMySQL    = "mysql"
	KindPostgres = "postgres"
	KindMSSQL    = "mssql"
	KindHTTP     = "http"
	KindCSV      = "csv"
	KindJSON     = "json"
)

const defaultTimeoutSeconds = 10

// Config carries the connection parameters for one logical data source.
// Which fields matter depends on the kind; secrets arrive already decrypted.
type Config struct {
	Kind     string `json:"kind" yaml:"kind"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"sslMode" yaml:"sslMode"`

	BaseURL string            `json:"baseUrl" yaml:"baseUrl"`
	Headers map[string]string `json:"headers" yaml:"headers"`
	APIKey  string            `json:"apiKey" yaml:"apiKey"`

	FilePath string `json:"filePath" yaml:"filePath"`

	TimeoutSeconds int `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

func (c Config) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// Query is interpreted per backend kind: literal SQL for database kinds, a
// small SELECT/WHERE grammar or a literal path for the HTTP kind, ignored by
// file kinds.
type Query struct {
	Statement  string `json:"statement"`
	Parameters []any  `json:"parameters"`
}

type Result struct {
	Columns    []string         `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	RowCount   int              `json:"rowCount"`
	DurationMs int64            `json:"durationMs"`
}

// TestResult never carries an error; probe failures land in Message with
// Success=false.
type TestResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LatencyMs *int64 `json:"latencyMs,omitempty"`
}
