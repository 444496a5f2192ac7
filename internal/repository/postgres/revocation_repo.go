package postgres

import (
	"context"
	"time"

	"github.com/and161185/notevault/internal/model"
)

// RevocationRepo implements RevocationRepository using PostgreSQL.
type RevocationRepo struct{ db *DB }

// NewRevocationRepo constructs a revocation repository.
func NewRevocationRepo(db *DB) *RevocationRepo { return &RevocationRepo{db: db} }

// Insert adds an entry. The primary key on token_key makes concurrent inserts of
// the same token collapse into one row.
func (r *RevocationRepo) Insert(ctx context.Context, e model.RevocationEntry) error {
	const q = `
INSERT INTO revoked_tokens (token_key, expires_at, revoked_at)
VALUES ($1, $2, $3)
ON CONFLICT (token_key) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, e.Key, e.ExpiresAt, e.RevokedAt)
	return storageErr(err)
}

// Exists reports whether key is present.
func (r *RevocationRepo) Exists(ctx context.Context, key string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_key = $1)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, key).Scan(&ok); err != nil {
		return false, storageErr(err)
	}
	return ok, nil
}

// DeleteExpired purges entries whose copied expiry is at or before now.
func (r *RevocationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM revoked_tokens WHERE expires_at <= $1`
	tag, err := r.db.Pool.Exec(ctx, q, now)
	if err != nil {
		return 0, storageErr(err)
	}
	return tag.RowsAffected(), nil
}
