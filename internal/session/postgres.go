package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists namespaced session values in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and ensures the table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS session_values (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (namespace, key)
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create session_values table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// GetNS implements NamespacedBackend.
func (p *PostgresStore) GetNS(ctx context.Context, ns, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM session_values WHERE namespace = $1 AND key = $2`, ns, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get session value %s: %w", key, err)
	}
	return value, true, nil
}

// SetNS implements NamespacedBackend.
func (p *PostgresStore) SetNS(ctx context.Context, ns, key, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO session_values (namespace, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = $3, updated_at = NOW()`,
		ns, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set session value %s: %w", key, err)
	}
	return nil
}

// RemoveNS implements NamespacedBackend.
func (p *PostgresStore) RemoveNS(ctx context.Context, ns, key string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM session_values WHERE namespace = $1 AND key = $2`, ns, key,
	)
	if err != nil {
		return fmt.Errorf("failed to remove session value %s: %w", key, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
