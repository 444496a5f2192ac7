// Package clientcrypto contains client-side primitives for note encryption.
// The server never calls into this package; it only stores what Seal produces.
package clientcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"

	"github.com/and161185/notevault/internal/model"
)

// Params
const (
	KeyLen     = 32 // AES-256
	IVLen      = 12 // GCM standard nonce
	TagLen     = 16
	Iterations = 100_000
)

// ErrBlobShape indicates a blob whose IV or tag has the wrong size.
var ErrBlobShape = errors.New("clientcrypto: bad iv/tag length")

func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveKey derives the note key from the password and the server-issued salt using PBKDF2-HMAC-SHA256.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, Iterations, KeyLen, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithTagSize(block, TagLen)
}

// Seal encrypts plaintext with AES-256-GCM and a random IV. Ciphertext and tag are returned separately.
func Seal(key, plaintext []byte) (model.NoteBlob, error) {
	aead, err := newGCM(key)
	if err != nil {
		return model.NoteBlob{}, err
	}
	iv, err := Rand(IVLen)
	if err != nil {
		return model.NoteBlob{}, err
	}
	sealed := aead.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - TagLen
	return model.NoteBlob{
		Ciphertext: sealed[:n:n],
		IV:         iv,
		AuthTag:    sealed[n:],
	}, nil
}

// Open authenticates and decrypts a blob produced by Seal.
func Open(key []byte, blob model.NoteBlob) ([]byte, error) {
	if len(blob.IV) != IVLen || len(blob.AuthTag) != TagLen {
		return nil, ErrBlobShape
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(blob.Ciphertext)+TagLen)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.AuthTag...)
	return aead.Open(nil, blob.IV, sealed, nil)
}
