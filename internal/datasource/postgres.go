package datasource

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

func NewPostgresAdapter() Adapter {
	return &sqlAdapter{kind: KindPostgres, driver: "postgres", buildDSN: postgresDSN}
}

func postgresDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", cfg.Host, port, cfg.User, cfg.Password, cfg.Database, sslMode)
}
