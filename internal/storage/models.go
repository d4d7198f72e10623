package storage

import "time"

// DataSourceRecord is a stored data-source configuration. PasswordEnc and
// APIKeyEnc hold ciphertext; the repository decrypts them before the config
// leaves this package.
type DataSourceRecord struct {
	ID             string
	Name           string
	Kind           string
	Host           string
	Port           int
	User           string
	PasswordEnc    string
	Database       string
	SSLMode        string
	BaseURL        string
	APIKeyEnc      string
	FilePath       string
	TimeoutSeconds int
	CreatedAt      time.Time
}

type RuleRecord struct {
	ID           string
	Name         string
	Severity     string
	Enabled      bool
	DataSourceID string
	Query        string
	// ConditionsJSON is the stored conditions array, decoded by the caller.
	ConditionsJSON []byte
	IntervalSecs   int
	FiringStreak   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ChannelRecord struct {
	ID         string
	Name       string
	Type       string
	Enabled    bool
	ConfigJSON []byte
	CreatedAt  time.Time
}

type InstanceRecord struct {
	ID        string
	RuleID    string
	Status    string
	Severity  string
	Message   string
	StartedAt time.Time
	EndedAt   *time.Time
}
