package datasource

import (
	"strings"
	"testing"
)

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(Config{User: "root", Password: "pw", Host: "db", Database: "app"})
	want := "root:pw@tcp(db:3306)/app?parseTime=true"
	if dsn != want {
		t.Fatalf("dsn = %q, want %q", dsn, want)
	}
	dsn = mysqlDSN(Config{User: "root", Password: "pw", Host: "db", Port: 3307, Database: "app", SSLMode: "disable"})
	if !strings.Contains(dsn, "db:3307") || !strings.Contains(dsn, "tls=false") {
		t.Fatalf("dsn = %q", dsn)
	}
	dsn = mysqlDSN(Config{Host: "db", SSLMode: "require"})
	if !strings.Contains(dsn, "tls=true") {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(Config{User: "u", Password: "p", Host: "db", Database: "app"})
	want := "host=db port=5432 user=u password=p dbname=app sslmode=disable"
	if dsn != want {
		t.Fatalf("dsn = %q, want %q", dsn, want)
	}
	dsn = postgresDSN(Config{Host: "db", SSLMode: "Require"})
	if !strings.Contains(dsn, "sslmode=require") {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestMSSQLDSN(t *testing.T) {
	dsn := mssqlDSN(Config{User: "sa", Password: "p@ss w0rd", Host: "db", Database: "app"})
	if !strings.HasPrefix(dsn, "sqlserver://sa:p%40ss+w0rd@db:1433") {
		t.Fatalf("credentials not escaped: %q", dsn)
	}
	if !strings.Contains(dsn, "encrypt=true") {
		t.Fatalf("dsn = %q", dsn)
	}
	dsn = mssqlDSN(Config{Host: "db", SSLMode: "disable"})
	if !strings.Contains(dsn, "encrypt=disable") {
		t.Fatalf("dsn = %q", dsn)
	}
}
