package repository

import (
	"context"

	"github.com/and161185/notevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// NoteRepository stores encrypted notes. Every method is scoped by owner.
type NoteRepository interface {
	// Create inserts a note owned by userID.
	Create(ctx context.Context, userID uuid.UUID, id uuid.UUID, blob model.NoteBlob) (*model.Note, error)

	// List returns live notes of userID, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Note, error)

	// Get returns a live note by ID.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error)

	// Update replaces the blob of a live note.
	Update(ctx context.Context, userID, id uuid.UUID, blob model.NoteBlob) (*model.Note, error)

	// SoftDelete sets the tombstone on a live note.
	SoftDelete(ctx context.Context, userID, id uuid.UUID) error
}
