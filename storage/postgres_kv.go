package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresKV persists result cache entries to PostgreSQL.
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresKV.
func NewPostgresKV(dsn string) (*PostgresKV, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	kv := &PostgresKV{db: db}
	if err := kv.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return kv, nil
}

func (kv *PostgresKV) migrate() error {
	_, err := kv.db.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			key        TEXT        PRIMARY KEY,
			value      TEXT        NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at);
	`)
	return err
}

func (kv *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := kv.db.QueryRowContext(ctx,
		`SELECT value FROM result_cache WHERE key = $1 AND expires_at > NOW()`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	return value, true, nil
}

func (kv *PostgresKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := kv.db.ExecContext(ctx, `
		INSERT INTO result_cache (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, created_at = NOW()
	`, key, value, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("postgres: set %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (kv *PostgresKV) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := kv.db.ExecContext(ctx, `DELETE FROM result_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge: %w", err)
	}
	return res.RowsAffected()
}

func (kv *PostgresKV) Close() error {
	return kv.db.Close()
}
