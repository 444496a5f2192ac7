package postgres

import (
	"context"

	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// NoteRepo implements NoteRepository using PostgreSQL.
type NoteRepo struct{ db *DB }

// NewNoteRepo constructs a note repository.
func NewNoteRepo(db *DB) *NoteRepo { return &NoteRepo{db: db} }

const noteCols = `id, user_id, ciphertext, iv, auth_tag, deleted, created_at, updated_at, deleted_at`

func scanNote(row pgx.Row) (*model.Note, error) {
	var n model.Note
	err := row.Scan(&n.ID, &n.UserID, &n.Blob.Ciphertext, &n.Blob.IV, &n.Blob.AuthTag,
		&n.Deleted, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create inserts a note owned by userID.
func (r *NoteRepo) Create(ctx context.Context, userID, id uuid.UUID, blob model.NoteBlob) (*model.Note, error) {
	const q = `
INSERT INTO notes (id, user_id, ciphertext, iv, auth_tag)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + noteCols
	n, err := scanNote(r.db.Pool.QueryRow(ctx, q, id, userID, blob.Ciphertext, blob.IV, blob.AuthTag))
	if err != nil {
		return nil, storageErr(err)
	}
	return n, nil
}

// List returns live notes of userID, newest first.
func (r *NoteRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Note, error) {
	const q = `
SELECT ` + noteCols + `
FROM notes
WHERE user_id=$1 AND NOT deleted
ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	out := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, *n)
	}
	return out, storageErr(rows.Err())
}

// Get returns a live note by id.
func (r *NoteRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error) {
	const q = `SELECT ` + noteCols + ` FROM notes WHERE user_id=$1 AND id=$2 AND NOT deleted`
	n, err := scanNote(r.db.Pool.QueryRow(ctx, q, userID, id))
	if err != nil {
		return nil, rowErr(err)
	}
	return n, nil
}

// Update replaces the blob of a live note.
func (r *NoteRepo) Update(ctx context.Context, userID, id uuid.UUID, blob model.NoteBlob) (*model.Note, error) {
	const q = `
UPDATE notes
SET ciphertext=$3, iv=$4, auth_tag=$5, updated_at=now()
WHERE user_id=$1 AND id=$2 AND NOT deleted
RETURNING ` + noteCols
	n, err := scanNote(r.db.Pool.QueryRow(ctx, q, userID, id, blob.Ciphertext, blob.IV, blob.AuthTag))
	if err != nil {
		return nil, rowErr(err)
	}
	return n, nil
}

// SoftDelete marks a live note as deleted.
func (r *NoteRepo) SoftDelete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `
UPDATE notes
SET deleted=true, deleted_at=now(), updated_at=now()
WHERE user_id=$1 AND id=$2 AND NOT deleted`
	tag, err := r.db.Pool.Exec(ctx, q, userID, id)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
