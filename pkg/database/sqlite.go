package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const defaultBusyTimeout = 5 * time.Second

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// BusyTimeout is how long a writer waits on a locked database before
	// SQLITE_BUSY. Zero uses 5s.
	BusyTimeout time.Duration
}

// DB wraps sql.DB with the request store's health check
type DB struct {
	*sql.DB
	path   string
	logger *zap.Logger
}

// New opens the SQLite database at cfg.Path in WAL mode.
// The special path ":memory:" opens a private in-memory database on a single connection.
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dsnFor(&cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("path", cfg.Path),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return &DB{DB: sqlDB, path: cfg.Path, logger: logger}, nil
}

// dsnFor builds the go-sqlite3 DSN and pins in-memory databases to one
// connection, since each connection would otherwise see its own empty database.
func dsnFor(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
		return "file::memory:?_foreign_keys=on"
	}

	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, busy.Milliseconds())
}

// Check pings the connection and confirms the request tables are migrated
func (db *DB) Check(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('purchase_requests', 'request_history')`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("schema not migrated")
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection", zap.String("path", db.path))
	return db.DB.Close()
}
