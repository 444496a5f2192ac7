// Package repository defines storage interfaces implemented by concrete backends.
//
// Implementations return errs.ErrNotFound / errs.ErrDuplicateIdentity for domain
// conditions and wrap every other driver failure with errs.ErrStorageUnavailable.
package repository

import (
	"context"

	"github.com/and161185/notevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user rows. It is the only writer of users.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrDuplicateIdentity.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by exact email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SwapPasswordHash replaces the hash only if it still equals oldHash.
	// A concurrent change makes it return errs.ErrInvalidCredential.
	SwapPasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash []byte) error
	// UpdateName sets the display name.
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
}
