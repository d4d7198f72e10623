package datasource

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

func NewMySQLAdapter() Adapter {
	return &sqlAdapter{kind: KindMySQL, driver: "mysql", buildDSN: mysqlDSN}
}

func mysqlDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.User, cfg.Password, cfg.Host, port, cfg.Database)
	sslMode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))
	if sslMode == "disable" {
		dsn += "&tls=false"
	} else if sslMode != "" {
		dsn += "&tls=true"
	}
	return dsn
}
