package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const defaultTablePrefix = "burrow_"

// PostgresStore keeps cursors in a <prefix>listener_cursors table.
type PostgresStore struct {
	db        *sql.DB
	tableName string
}

// NewPostgresStore connects and creates the cursor table if needed.
// tablePrefix defaults to "burrow_".
func NewPostgresStore(ctx context.Context, connStr string, tablePrefix string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := NewPostgresStoreWithDB(db, tablePrefix)
	if err := store.initTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB uses an open handle. The table is not created.
func NewPostgresStoreWithDB(db *sql.DB, tablePrefix string) *PostgresStore {
	if tablePrefix == "" {
		tablePrefix = defaultTablePrefix
	}
	return &PostgresStore{db: db, tableName: tablePrefix + "listener_cursors"}
}

func (p *PostgresStore) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		listener_key VARCHAR(255) PRIMARY KEY,
		height BIGINT NOT NULL,
		event_ordinal BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`, p.tableName)
	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *PostgresStore) Load(ctx context.Context, key string) (Cursor, bool, error) {
	var cur Cursor
	query := fmt.Sprintf("SELECT height, event_ordinal FROM %s WHERE listener_key = $1", p.tableName)
	err := p.db.QueryRowContext(ctx, query, key).Scan(&cur.Height, &cur.Ordinal)
	if errors.Is(err, sql.ErrNoRows) {
		return Cursor{}, false, nil
	}
	if err != nil {
		return Cursor{}, false, err
	}
	return cur, true, nil
}

func (p *PostgresStore) Save(ctx context.Context, key string, cur Cursor) error {
	query := fmt.Sprintf(`
	INSERT INTO %s (listener_key, height, event_ordinal, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (listener_key)
	DO UPDATE SET height = EXCLUDED.height, event_ordinal = EXCLUDED.event_ordinal, updated_at = NOW();
	`, p.tableName)
	_, err := p.db.ExecContext(ctx, query, key, cur.Height, cur.Ordinal)
	return err
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
