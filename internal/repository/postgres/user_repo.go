package postgres

import (
	"context"

	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, password_hash, salt, name)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.Email, u.PasswordHash, u.Salt, u.Name).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateIdentity
	}
	return storageErr(err)
}

const selectUser = `
SELECT id, email, name, password_hash, salt, created_at, updated_at
FROM users`

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Salt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, rowErr(err)
	}
	return &u, nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id=$1`, id)
}

// GetByEmail selects a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email=$1`, email)
}

// SwapPasswordHash updates password_hash only while it still equals oldHash.
// The row lock taken by UPDATE serializes concurrent changes: the loser sees 0 rows.
func (r *UserRepo) SwapPasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash []byte) error {
	const q = `
UPDATE users
SET password_hash = $3, updated_at = now()
WHERE id = $1 AND password_hash = $2`
	tag, err := r.db.Pool.Exec(ctx, q, id, oldHash, newHash)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrInvalidCredential
	}
	return nil
}

// UpdateName sets the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	const q = `UPDATE users SET name = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, name)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
