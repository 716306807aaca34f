package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docparser/internal/common"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Backend          string
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	Redis            RedisConfig
}

// Open builds the configured store. SQL backends are migrated before use.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("store.open", "backend", cfg.Backend)

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		s := NewRedisStore(cfg.Redis, logger)
		if err := HealthCheck(ctx, s, cfg.DialTimeout, logger); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case BackendPostgres:
		return OpenPostgres(ctx, cfg, logger)
	}
	return nil, common.ConfigError("unknown STORE_BACKEND "+cfg.Backend)
}

// OpenSQLite opens a file-backed (or ":memory:") database through the pure Go driver.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// each :memory: connection is its own database
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("store.sqlite.pragma_failed", "error", err)
	}

	s, err := NewSQLStore(db, dialect.SQLite, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres creates a pgx pool and wraps it for ent's SQL driver.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error) {
	if cfg.DSN == "" {
		return nil, common.ConfigError("DB_URL is required for the postgres store")
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("store.postgres.parse_failed", "error", err)
		return nil, fmt.Errorf("parse DB_URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "docparser"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("store.postgres.connect_failed", "error", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s, err := NewSQLStore(stdlib.OpenDBFromPool(pool), dialect.Postgres, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.onClose = pool.Close
	if err := HealthCheck(dialCtx, s, 0, logger); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("store.postgres.connected")
	return s, nil
}

// HealthCheck pings the store to catch bad addresses and DSNs early.
func HealthCheck(ctx context.Context, s Store, timeout time.Duration, logger *slog.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.Ping(ctx); err != nil {
		logger.Error("store.ping.failed", "error", err)
		return fmt.Errorf("ping store: %w: %v", common.ErrDatabase, err)
	}
	logger.Debug("store.ping.ok")
	return nil
}
