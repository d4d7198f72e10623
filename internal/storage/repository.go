package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dashforge-backend/internal/datasource"
	"dashforge-backend/internal/secret"
)

type Repository struct {
	Store *Store
	Codec secret.Codec
}

func NewRepository(store *Store, codec secret.Codec) *Repository {
	if codec == nil {
		codec = secret.Noop{}
	}
	return &Repository{Store: store, Codec: codec}
}

// scanErr maps absence to ErrNotFound and keeps every other scan failure
// distinguishable, so a transient database error never reads as a missing
// record.
func scanErr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *Repository) ListDataSources(ctx context.Context) ([]DataSourceRecord, error) {
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT id, name, kind, host, port, user_name, password_enc, database, ssl_mode, base_url, api_key_enc, file_path, timeout_seconds, created_at
		FROM data_sources ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []DataSourceRecord{}
	for rows.Next() {
		var rec DataSourceRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Kind, &rec.Host, &rec.Port, &rec.User, &rec.PasswordEnc, &rec.Database, &rec.SSLMode, &rec.BaseURL, &rec.APIKeyEnc, &rec.FilePath, &rec.TimeoutSeconds, &rec.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// DataSourceConfig resolves a stored record into the decrypted config shape
// the adapter layer expects.
func (r *Repository) DataSourceConfig(rec DataSourceRecord) (datasource.Config, error) {
	var password, apiKey string
	var err error
	if rec.PasswordEnc != "" {
		password, err = r.Codec.Decrypt(rec.PasswordEnc)
		if err != nil {
			return datasource.Config{}, fmt.Errorf("decrypt password for data source %s: %w", rec.ID, err)
		}
	}
	if rec.APIKeyEnc != "" {
		apiKey, err = r.Codec.Decrypt(rec.APIKeyEnc)
		if err != nil {
			return datasource.Config{}, fmt.Errorf("decrypt api key for data source %s: %w", rec.ID, err)
		}
	}
	return datasource.Config{
		Kind:           rec.Kind,
		Host:           rec.Host,
		Port:           rec.Port,
		User:           rec.User,
		Password:       password,
		Database:       rec.Database,
		SSLMode:        rec.SSLMode,
		BaseURL:        rec.BaseURL,
		APIKey:         apiKey,
		FilePath:       rec.FilePath,
		TimeoutSeconds: rec.TimeoutSeconds,
	}, nil
}

func (r *Repository) GetRule(ctx context.Context, id string) (RuleRecord, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT id, name, severity, enabled, data_source_id, query, conditions_json, interval_seconds, firing_streak, created_at, updated_at
		FROM alert_rules WHERE id=$1`, id)
	var rec RuleRecord
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Severity, &rec.Enabled, &rec.DataSourceID, &rec.Query, &rec.ConditionsJSON, &rec.IntervalSecs, &rec.FiringStreak, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return RuleRecord{}, scanErr(err, "get rule "+id)
	}
	return rec, nil
}

func (r *Repository) ListEnabledRules(ctx context.Context) ([]RuleRecord, error) {
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT id, name, severity, enabled, data_source_id, query, conditions_json, interval_seconds, firing_streak, created_at, updated_at
		FROM alert_rules WHERE enabled ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []RuleRecord{}
	for rows.Next() {
		var rec RuleRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Severity, &rec.Enabled, &rec.DataSourceID, &rec.Query, &rec.ConditionsJSON, &rec.IntervalSecs, &rec.FiringStreak, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *Repository) ListChannelsForRule(ctx context.Context, ruleID string) ([]ChannelRecord, error) {
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT c.id, c.name, c.type, c.enabled, c.config_json, c.created_at
		FROM notification_channels c
		JOIN rule_channels rc ON rc.channel_id = c.id
		WHERE rc.rule_id = $1 ORDER BY c.created_at`, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []ChannelRecord{}
	for rows.Next() {
		var rec ChannelRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Enabled, &rec.ConfigJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *Repository) GetChannel(ctx context.Context, id string) (ChannelRecord, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT id, name, type, enabled, config_json, created_at
		FROM notification_channels WHERE id=$1`, id)
	var rec ChannelRecord
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Enabled, &rec.ConfigJSON, &rec.CreatedAt); err != nil {
		return ChannelRecord{}, scanErr(err, "get channel "+id)
	}
	return rec, nil
}

func (r *Repository) CreateInstance(ctx context.Context, rec InstanceRecord) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO alert_instances (id, rule_id, status, severity, message, started_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		id, rec.RuleID, rec.Status, rec.Severity, rec.Message, rec.StartedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ResolveInstance(ctx context.Context, id string, endedAt time.Time) error {
	_, err := r.Store.Pool.Exec(ctx, `
		UPDATE alert_instances SET status='resolved', ended_at=$2 WHERE id=$1`, id, endedAt)
	return err
}

// OpenInstanceForRule returns the id of the rule's unresolved instance, or
// empty when none is open. A query failure propagates so the caller can tell
// "no open instance" apart from "could not check".
func (r *Repository) OpenInstanceForRule(ctx context.Context, ruleID string) (string, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT id FROM alert_instances
		WHERE rule_id=$1 AND status IN ('pending','firing')
		ORDER BY started_at DESC LIMIT 1`, ruleID)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("open instance for rule %s: %w", ruleID, err)
	}
	return id, nil
}
