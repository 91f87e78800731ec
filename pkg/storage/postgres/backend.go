// Package postgres provides a storage.Backend persisted to a Postgres table
// through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-overrides/pkg/storage"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ storage.Backend = (*Backend)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/overrides?sslmode=disable"
	defaultTable  = "override_kv"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Backend stores one JSONB row per key.
type Backend struct {
	db    *sql.DB
	table string
}

// Open connects to dsn (falling back to a local default), verifies the
// connection and ensures the key/value table exists.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	b := &Backend{db: db, table: defaultTable}
	if err := b.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// New wraps an existing handle. The table must already exist or be created
// through EnsureTable.
func New(db *sql.DB) *Backend {
	return &Backend{db: db, table: defaultTable}
}

// EnsureTable creates the key/value table when missing.
func (b *Backend) EnsureTable(ctx context.Context) error {
	return b.ensureTable(ctx)
}

func (b *Backend) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, b.table)
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s table: %w", b.table, err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE key = $1`, b.table)
	err := b.db.QueryRowContext(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, true, nil
}

func (b *Backend) Put(ctx context.Context, key string, payload []byte) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (key, payload, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`, b.table)
	if _, err := b.db.ExecContext(ctx, stmt, key, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, b.table)
	if _, err := b.db.ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := fmt.Sprintf(`SELECT key FROM %s WHERE starts_with(key, $1) ORDER BY key`, b.table)
	rows, err := b.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("select keys: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DB exposes the underlying handle for integration tests.
func (b *Backend) DB() *sql.DB { return b.db }

// Close releases the database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}
