package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solanaetl/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS etl_items (
	id          BIGSERIAL PRIMARY KEY,
	item_type   TEXT NOT NULL,
	item_id     TEXT,
	item        JSONB NOT NULL,
	exported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS etl_items_type_idx ON etl_items (item_type);
CREATE TABLE IF NOT EXISTS etl_state (
	name              TEXT PRIMARY KEY,
	last_synced_block BIGINT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store persists exported items and streaming state in Postgres.
type Store struct {
	dsn  string
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{dsn: dsn, pool: pool}, nil
}

// Open creates the tables if missing.
func (s *Store) Open(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ExportItems appends items in one round trip.
func (s *Store) ExportItems(ctx context.Context, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		var itemID *string
		if id, ok := item["item_id"].(string); ok && id != "" {
			itemID = &id
		}
		batch.Queue(`INSERT INTO etl_items (item_type, item_id, item) VALUES ($1, $2, $3)`,
			item.Type(), itemID, payload)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range items {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last synced block for name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_synced_block FROM etl_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts the last synced block for name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO etl_state (name, last_synced_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_synced_block = EXCLUDED.last_synced_block, updated_at = now()
	`, name, int64(block))
	return err
}
