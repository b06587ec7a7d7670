// Package store is the PostgreSQL session store.
package store

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies a SQL file. The statements are idempotent.
func (s *Store) Migrate(ctx context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading migration")
	}
	_, err = s.pool.Exec(ctx, string(b))
	return errors.Wrap(err, "applying migration")
}
