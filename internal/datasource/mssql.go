package datasource

import (
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
)

func NewMSSQLAdapter() Adapter {
	return &sqlAdapter{kind: KindMSSQL, driver: "sqlserver", buildDSN: mssqlDSN}
}

func mssqlDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	user := url.QueryEscape(cfg.User)
	pass := url.QueryEscape(cfg.Password)
	encrypt := "true"
	if strings.ToLower(strings.TrimSpace(cfg.SSLMode)) == "disable" {
		encrypt = "disable"
	}
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s&encrypt=%s", user, pass, cfg.Host, port, cfg.Database, encrypt)
}
