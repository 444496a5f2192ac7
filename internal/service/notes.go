package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
	"github.com/and161185/notevault/internal/repository"
)

// DefaultMaxCiphertext caps a single note's ciphertext.
const DefaultMaxCiphertext = 1 << 20

// NoteService stores encrypted notes on behalf of an authenticated user. It
// never looks inside a blob; every call is scoped to the caller's id.
type NoteService struct {
	repo   repository.NoteRepository
	maxLen int
}

// NewNoteService constructs NoteService. A non-positive maxLen selects DefaultMaxCiphertext.
func NewNoteService(repo repository.NoteRepository, maxLen int) *NoteService {
	if maxLen <= 0 {
		maxLen = DefaultMaxCiphertext
	}
	return &NoteService{repo: repo, maxLen: maxLen}
}

// Create stores a new note for userID.
func (s *NoteService) Create(ctx context.Context, userID uuid.UUID, blob model.NoteBlob) (*model.Note, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrInvalidArgument)
	}
	if err := s.validate(blob); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, userID, id, blob)
}

// List returns live notes of userID, newest first.
func (s *NoteService) List(ctx context.Context, userID uuid.UUID) ([]model.Note, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrInvalidArgument)
	}
	return s.repo.List(ctx, userID)
}

// Get returns one live note.
func (s *NoteService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id/id", errs.ErrInvalidArgument)
	}
	return s.repo.Get(ctx, userID, id)
}

// Update replaces the blob of a live note.
func (s *NoteService) Update(ctx context.Context, userID, id uuid.UUID, blob model.NoteBlob) (*model.Note, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id/id", errs.ErrInvalidArgument)
	}
	if err := s.validate(blob); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, userID, id, blob)
}

// Delete soft-deletes a note.
func (s *NoteService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return fmt.Errorf("%w: empty user id/id", errs.ErrInvalidArgument)
	}
	return s.repo.SoftDelete(ctx, userID, id)
}

func (s *NoteService) validate(b model.NoteBlob) error {
	switch {
	case len(b.Ciphertext) == 0:
		return fmt.Errorf("%w: empty ciphertext", errs.ErrInvalidArgument)
	case len(b.Ciphertext) > s.maxLen:
		return fmt.Errorf("%w: ciphertext too large (%d > %d)", errs.ErrInvalidArgument, len(b.Ciphertext), s.maxLen)
	case len(b.IV) == 0 || len(b.AuthTag) == 0:
		return fmt.Errorf("%w: empty iv/auth tag", errs.ErrInvalidArgument)
	}
	return nil
}
