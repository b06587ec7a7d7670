package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"appointment-portal/internal/model"
	"appointment-portal/internal/session"
)

var _ session.Store = (*Store)(nil)
var _ session.Sweeper = (*Store)(nil)

// Save upserts, so a re-login on the same session swaps the user in one
// statement.
func (s *Store) Save(ctx context.Context, ss *session.Session) error {
	u, err := json.Marshal(ss.User)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO portal_sessions (id, user_id, user_json, created_at, expires_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE
		 SET user_id = EXCLUDED.user_id, user_json = EXCLUDED.user_json, expires_at = EXCLUDED.expires_at`,
		ss.ID, ss.User.ID, u, ss.CreatedAt, ss.ExpiresAt,
	)
	return errors.Wrap(err, "saving session")
}

func (s *Store) Load(ctx context.Context, id string) (*session.Session, error) {
	var (
		ss  = &session.Session{ID: id}
		raw []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_json, created_at, expires_at FROM portal_sessions WHERE id = $1`, id,
	).Scan(&raw, &ss.CreatedAt, &ss.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrap(err, "decoding session user")
	}
	ss.User = u
	return ss, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id)
	return errors.Wrap(err, "deleting session")
}

func (s *Store) deleteReturning(ctx context.Context, q string, arg any) ([]string, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.deleteReturning(ctx, `DELETE FROM portal_sessions WHERE expires_at <= $1 RETURNING id`, now)
	return ids, errors.Wrap(err, "sweeping sessions")
}

// DeleteForUser ends every session of a user, e.g. after an admin removes
// the account.
func (s *Store) DeleteForUser(ctx context.Context, userID int64) ([]string, error) {
	ids, err := s.deleteReturning(ctx, `DELETE FROM portal_sessions WHERE user_id = $1 RETURNING id`, userID)
	return ids, errors.Wrap(err, "deleting user sessions")
}
