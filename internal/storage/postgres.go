package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresBackend stores each document as a jsonb row of the collections table.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend wraps an already migrated connection.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Data travels as text: lib/pq would encode []byte as bytea.
type collectionRow struct {
	Name string `db:"name"`
	Data string `db:"data"`
}

func (b *PostgresBackend) Read(ctx context.Context, name string) ([]byte, bool, error) {
	var row collectionRow
	err := b.db.GetContext(ctx, &row, `SELECT name, data::text AS data FROM collections WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: select %s: %w", name, err)
	}
	return []byte(row.Data), true, nil
}

func (b *PostgresBackend) Write(ctx context.Context, name string, data []byte) error {
	_, err := b.db.NamedExecContext(ctx, `
		INSERT INTO collections (name, data, updated_at)
		VALUES (:name, CAST(:data AS jsonb), now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collectionRow{Name: name, Data: string(data)},
	)
	if err != nil {
		return fmt.Errorf("storage: upsert %s: %w", name, err)
	}
	return nil
}
