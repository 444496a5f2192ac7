// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SaltLen is the size of the per-user key-derivation salt.
const SaltLen = 16

// User represents an account stored on the server. The password is kept only as a bcrypt verifier.
type User struct {
	ID           uuid.UUID // PK
	Email        string    // unique, case-sensitive
	Name         string
	PasswordHash []byte // bcrypt(password), cost and salt embedded
	Salt         []byte // client key-derivation salt, immutable after registration
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SaltCopy returns a copy of the key-derivation salt.
func (u *User) SaltCopy() []byte {
	return append([]byte(nil), u.Salt...)
}

// Claims is the verified content of a session token.
type Claims struct {
	UserID    uuid.UUID
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Identity is the authenticated principal produced by the session guard.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	Token     string
	ExpiresAt time.Time
}

// RevocationEntry records a logged-out token until its natural expiry.
type RevocationEntry struct {
	Key       string    // sha256 hex of the exact token string
	ExpiresAt time.Time // copied from the verified token
	RevokedAt time.Time
}

// NoteBlob is the opaque client-side encryption output. The server never interprets it.
type NoteBlob struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// Note is a stored encrypted note.
type Note struct {
	ID        uuid.UUID
	UserID    uuid.UUID // FK -> users.id
	Blob      NoteBlob
	Deleted   bool // soft-delete flag
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
