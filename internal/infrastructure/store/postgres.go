package store

import (
	"context"
	"database/sql"
	"errors"
)

// Postgres 以單一 credentials 表保存所有憑證 key-value。
type Postgres struct {
	db *sql.DB
}

// NewPostgres 建立 Postgres Store 實例。
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM credentials WHERE key = $1;`
	var value string
	err := p.db.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO credentials (key, value)
VALUES ($1, $2)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
`
	_, err := p.db.ExecContext(ctx, q, key, value)
	return err
}

func (p *Postgres) Remove(ctx context.Context, keys ...string) error {
	const q = `DELETE FROM credentials WHERE key = $1;`
	for _, k := range keys {
		if _, err := p.db.ExecContext(ctx, q, k); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) ClearAll(ctx context.Context) error {
	const q = `DELETE FROM credentials;`
	_, err := p.db.ExecContext(ctx, q)
	return err
}
