package config

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
)

// LegacyPool wraps the connection pool to the legacy membership database
// (SQL Server). It is passed by dependency injection so that callers can
// control timeout policy and tests can substitute a mock pool.
//
// Every call goes through QueryContext/ExecContext with the pool's timeout
// applied: the legacy store is best-effort and must never hang a worker
// indefinitely.
type LegacyPool struct {
	DB      *sql.DB
	Timeout time.Duration
}

// OpenLegacyPool opens the pool from LEGACY_DB_* env configuration.
// It does not ping: the legacy store being down must not fail startup.
func OpenLegacyPool() (*LegacyPool, error) {
	host := strings.TrimSpace(os.Getenv("LEGACY_DB_HOST"))
	if host == "" {
		return nil, fmt.Errorf("LEGACY_DB_HOST is required")
	}
	port := strings.TrimSpace(os.Getenv("LEGACY_DB_PORT"))
	if port == "" {
		port = "1433"
	}
	dbName := strings.TrimSpace(os.Getenv("LEGACY_DB_NAME"))
	if dbName == "" {
		dbName = "Member"
	}

	dsn := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(os.Getenv("LEGACY_DB_USER"), os.Getenv("LEGACY_DB_PASSWORD")),
		Host:   fmt.Sprintf("%s:%s", host, port),
		RawQuery: url.Values{
			"database": []string{dbName},
		}.Encode(),
	}

	sqlDB, err := sql.Open("sqlserver", dsn.String())
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(intFromEnv("LEGACY_DB_MAX_OPEN_CONNS", 5))
	sqlDB.SetMaxIdleConns(intFromEnv("LEGACY_DB_MAX_IDLE_CONNS", 2))
	sqlDB.SetConnMaxLifetime(time.Duration(intFromEnv("LEGACY_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)

	timeout := time.Duration(intFromEnv("LEGACY_QUERY_TIMEOUT_SECONDS", 10)) * time.Second

	return &LegacyPool{DB: sqlDB, Timeout: timeout}, nil
}

// NewLegacyPool builds a pool around an already-open handle. Used by tests.
func NewLegacyPool(db *sql.DB, timeout time.Duration) *LegacyPool {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LegacyPool{DB: db, Timeout: timeout}
}

func (p *LegacyPool) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.Timeout)
}

func (p *LegacyPool) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	callCtx, cancel := p.context(ctx)
	defer cancel()
	return p.DB.ExecContext(callCtx, query, args...)
}

// QueryRowScan runs a single-row query and scans into dest inside the
// pool's timeout window.
func (p *LegacyPool) QueryRowScan(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	callCtx, cancel := p.context(ctx)
	defer cancel()
	return p.DB.QueryRowContext(callCtx, query, args...).Scan(dest...)
}

func (p *LegacyPool) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	return p.DB.Close()
}
