package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig holds the configuration for the SQLite connection.
type SQLiteConfig struct {
	// Path is the database file path. Two processes (submit and check
	// services) share the same file; WAL plus a busy timeout keeps their
	// writes from failing on lock contention.
	Path string `yaml:"path"`

	// BusyTimeout is how long a blocked write waits for a competing lock.
	// Default: 5 seconds.
	BusyTimeout time.Duration `yaml:"busyTimeout"`

	// MaxOpenConnections caps concurrent connections. Default: 4.
	MaxOpenConnections int `yaml:"maxOpenConnections"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	// Default: 10 minutes.
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		BusyTimeout:        5 * time.Second,
		MaxOpenConnections: 4,
		ConnMaxIdleTime:    10 * time.Minute,
	}
}

// SQLite implements the Database interface using the mattn/go-sqlite3 driver.
type SQLite struct {
	db     *sql.DB
	config *SQLiteConfig
}

// NewSQLite creates a new SQLite database connection with default config.
func NewSQLite(path string) (*SQLite, error) {
	config := DefaultSQLiteConfig()
	config.Path = path
	return NewSQLiteWithConfig(config)
}

// NewSQLiteWithConfig creates a new SQLite database connection with custom configuration.
func NewSQLiteWithConfig(config *SQLiteConfig) (*SQLite, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if config.MaxOpenConnections == 0 {
		config.MaxOpenConnections = 4
	}
	if config.ConnMaxIdleTime == 0 {
		config.ConnMaxIdleTime = 10 * time.Minute
	}

	db, err := sql.Open("sqlite3", buildDSN(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLite{db: db, config: config}, nil
}

// NewSQLiteWithDB creates a SQLite instance from an existing sql.DB.
func NewSQLiteWithDB(db *sql.DB) (*SQLite, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLite{db: db, config: DefaultSQLiteConfig()}, nil
}

func buildDSN(config *SQLiteConfig) string {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(config.BusyTimeout.Milliseconds()))
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "on")
	// Transactions take the write lock up front. A deferred transaction that
	// reads before writing cannot upgrade its lock once another writer has
	// committed in between; it fails instead of waiting on the busy timeout.
	params.Set("_txlock", "immediate")
	return "file:" + config.Path + "?" + params.Encode()
}

// Query executes a query that returns rows.
func (s *SQLite) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &SQLiteRows{rows: rows}, nil
}

// QueryRow executes a query that returns at most one row.
func (s *SQLite) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return &SQLiteRow{row: s.db.QueryRowContext(ctx, query, args...)}
}

// Exec executes a query that doesn't return rows.
func (s *SQLite) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}
	return &SQLiteResult{result: result}, nil
}

// Transaction executes a function within a database transaction.
func (s *SQLite) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}

	sqliteTx := &SQLiteTransaction{tx: tx}
	if err := fn(sqliteTx); err != nil {
		_ = sqliteTx.Rollback()
		return err
	}

	return sqliteTx.Commit()
}

// Ping verifies a connection to the database is still alive.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// SQLiteRows implements the Rows interface.
type SQLiteRows struct {
	rows *sql.Rows
}

// Next prepares the next result row.
func (r *SQLiteRows) Next() bool {
	return r.rows.Next()
}

// Scan copies the columns from the current row into the values.
func (r *SQLiteRows) Scan(dest ...interface{}) error {
	if err := r.rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

// Close closes the Rows.
func (r *SQLiteRows) Close() error {
	if err := r.rows.Close(); err != nil {
		return fmt.Errorf("close rows failed: %w", err)
	}
	return nil
}

// Err returns the error encountered during iteration.
func (r *SQLiteRows) Err() error {
	return r.rows.Err()
}

// SQLiteRow implements the Row interface.
type SQLiteRow struct {
	row *sql.Row
}

// Scan copies the columns from the matched row.
func (r *SQLiteRow) Scan(dest ...interface{}) error {
	return r.row.Scan(dest...)
}

// SQLiteResult implements the Result interface.
type SQLiteResult struct {
	result sql.Result
}

// LastInsertId returns the last inserted ID.
func (r *SQLiteResult) LastInsertId() (int64, error) {
	id, err := r.result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id failed: %w", err)
	}
	return id, nil
}

// RowsAffected returns the number of rows affected.
func (r *SQLiteResult) RowsAffected() (int64, error) {
	n, err := r.result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected failed: %w", err)
	}
	return n, nil
}

// SQLiteTransaction implements the Transaction interface.
type SQLiteTransaction struct {
	tx *sql.Tx
}

// Query executes a query within the transaction.
func (t *SQLiteTransaction) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &SQLiteRows{rows: rows}, nil
}

// QueryRow executes a query that returns at most one row within the transaction.
func (t *SQLiteTransaction) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return &SQLiteRow{row: t.tx.QueryRowContext(ctx, query, args...)}
}

// Exec executes a statement within the transaction.
func (t *SQLiteTransaction) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}
	return &SQLiteResult{result: result}, nil
}

// Commit commits the transaction.
func (t *SQLiteTransaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *SQLiteTransaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}
