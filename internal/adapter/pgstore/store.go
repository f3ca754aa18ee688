// Package pgstore keeps pipeline artifacts in a PostgreSQL table, one row
// per artifact name.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS neo_artifacts (
	name       TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// Store implements artifact storage on a *sql.DB.
type Store struct {
	db *sql.DB
}

// New opens the database, verifies the connection and creates the
// artifact table when missing.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", domain.ErrPersistence, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", domain.ErrPersistence, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create artifact table: %w", domain.ErrPersistence, err)
	}
	return &Store{db: db}, nil
}

// Put upserts data under name.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	const query = `INSERT INTO neo_artifacts (name, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, name, data, domain.Now()); err != nil {
		return fmt.Errorf("%w: put %s: %w", domain.ErrPersistence, name, err)
	}
	return nil
}

// Get returns the artifact stored under name, or ErrArtifactNotFound.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM neo_artifacts WHERE name = $1`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, name, err)
	}
	return data, nil
}

// List returns the stored artifact names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM neo_artifacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: list: %w", domain.ErrPersistence, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %w", domain.ErrPersistence, err)
	}
	return names, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
