// Package service contains application services: credentials, sessions,
// revocation and the encrypted note store.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/notevault/internal/crypto"
	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
	"github.com/and161185/notevault/internal/repository"
)

// MaxNameLen bounds display names, in characters.
const MaxNameLen = 100

// CredentialStore owns user rows: registration, password verification and
// password changes. Plaintext passwords are never persisted.
type CredentialStore struct {
	users  repository.UserRepository
	hasher *pkgcrypto.Hasher
	rand   io.Reader
}

// NewCredentialStore constructs a CredentialStore. A nil rnd selects crypto/rand.
func NewCredentialStore(users repository.UserRepository, hasher *pkgcrypto.Hasher, rnd io.Reader) *CredentialStore {
	if rnd == nil {
		rnd = rand.Reader
	}
	return &CredentialStore{users: users, hasher: hasher, rand: rnd}
}

// Register creates a user. The password policy is checked before anything is
// written, so a weak password never leaves a row behind.
func (s *CredentialStore) Register(ctx context.Context, email, password, name string) (uuid.UUID, error) {
	if err := validateEmail(email); err != nil {
		return uuid.Nil, err
	}
	if err := pkgcrypto.CheckPasswordPolicy(password); err != nil {
		return uuid.Nil, err
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if err := validateName(name); err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("register: %w", err)
	}
	salt, err := pkgcrypto.RandBytesFrom(s.rand, model.SaltLen)
	if err != nil {
		return uuid.Nil, fmt.Errorf("register: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("register: %w", err)
	}
	u := &model.User{ID: id, Email: email, Name: name, PasswordHash: hash, Salt: salt}
	if err := s.users.Create(ctx, u); err != nil {
		return uuid.Nil, fmt.Errorf("register: %w", err)
	}
	return id, nil
}

// Verify checks email and password and returns the user id. Unknown email and
// wrong password both yield errs.ErrInvalidCredential after one bcrypt comparison.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (uuid.UUID, error) {
	u, err := s.verifyUser(ctx, email, password)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

func (s *CredentialStore) verifyUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		s.hasher.Burn(password)
		return nil, errs.ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, errs.ErrInvalidCredential
	}
	return u, nil
}

// ChangePassword replaces the verifier after re-checking the old password. The
// swap is conditional on the hash read here, so of two concurrent changes only
// one lands; the other sees errs.ErrInvalidCredential. The salt is left alone.
func (s *CredentialStore) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !s.hasher.Verify(oldPassword, u.PasswordHash) {
		return errs.ErrInvalidCredential
	}
	if err := pkgcrypto.CheckPasswordPolicy(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.users.SwapPasswordHash(ctx, userID, u.PasswordHash, hash); err != nil {
		if errors.Is(err, errs.ErrInvalidCredential) {
			return err
		}
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// GetSalt returns a copy of the user's key-derivation salt.
func (s *CredentialStore) GetSalt(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get salt: %w", err)
	}
	return u.SaltCopy(), nil
}

// Profile returns the user without the password verifier.
func (s *CredentialStore) Profile(ctx context.Context, userID uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("profile: %w", err)
	}
	return publicUser(u), nil
}

// UpdateName sets the display name.
func (s *CredentialStore) UpdateName(ctx context.Context, userID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	return nil
}

func publicUser(u *model.User) model.User {
	out := *u
	out.PasswordHash = nil
	out.Salt = u.SaltCopy()
	return out
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: bad email", errs.ErrInvalidArgument)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("%w: name must be 1..%d characters", errs.ErrInvalidArgument, MaxNameLen)
	}
	return nil
}
