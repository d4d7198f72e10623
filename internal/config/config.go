package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dashforge-backend/internal/datasource"
)

// DataSources maps logical data-source ids to their connection settings.
// Loaded at startup as an alternative (or supplement) to the database-backed
// source records.
type DataSources struct {
	Sources map[string]datasource.Config `yaml:"sources"`
}

func LoadDataSources(path string) (DataSources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DataSources{}, err
	}
	var cfg DataSources
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DataSources{}, err
	}
	if len(cfg.Sources) == 0 {
		return DataSources{}, fmt.Errorf("no data sources configured")
	}
	for id, src := range cfg.Sources {
		if src.Kind == "" {
			return DataSources{}, fmt.Errorf("data source %q: kind is required", id)
		}
	}
	return cfg, nil
}

// ConnectAll pushes every configured source into the registry; one failing
// source does not block the rest, the errors come back keyed by id.
func (c DataSources) ConnectAll(ctx context.Context, registry *datasource.Registry) map[string]error {
	failures := map[string]error{}
	for id, cfg := range c.Sources {
		if err := registry.Connect(ctx, id, cfg); err != nil {
			failures[id] = err
		}
	}
	return failures
}
