// Package store persists subscriber runs in Postgres and answers the PostGIS
// census lookups used to place subscribers in tracts.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bdcsubs/internal/config"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/infrastructure"
)

// DB is the subset of pgxpool.Pool the store needs. pgx.Tx satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ConnString builds a Postgres URL from cfg
func ConnString(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens a single-connection pool and verifies it with a ping. The
// caller owns the pool and must Close it.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, apperrors.NewConfigError("invalid database configuration", err)
	}
	poolCfg.MaxConns = 1
	poolCfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperrors.NewPersistenceError("unable to connect to database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewPersistenceError(
			fmt.Sprintf("database %s@%s:%d unreachable", cfg.Name, cfg.Host, cfg.Port), err)
	}
	return pool, nil
}

// Store groups the queries of one run against one database
type Store struct {
	db     DB
	cfg    config.DatabaseConfig
	logger *slog.Logger
}

// New creates a store over db
func New(db DB, cfg config.DatabaseConfig, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		cfg:    cfg,
		logger: infrastructure.WithComponent(logger, "store"),
	}
}

// rollback ends tx after a failed step, logging a failed rollback
func (s *Store) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.ErrorContext(ctx, "rollback failed", slog.String("error", err.Error()))
	}
}

// qualified returns a sanitized schema.table identifier
func qualified(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
