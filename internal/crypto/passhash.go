// Package crypto implements server-side password hashing, verification and the password policy.
package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches 12 bcrypt log-rounds.
const DefaultCost = 12

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	return RandBytesFrom(rand.Reader, n)
}

// RandBytesFrom reads exactly n bytes from r.
func RandBytesFrom(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// Hasher produces and checks bcrypt password verifiers at a fixed cost.
type Hasher struct {
	cost  int
	dummy []byte // verifier of a throwaway password, compared against when a user is unknown
}

// NewHasher constructs a Hasher. It panics when cost is outside bcrypt bounds.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		panic(fmt.Sprintf("crypto: bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("notevault-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("crypto: dummy hash: %v", err))
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Cost returns the configured bcrypt cost.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a bcrypt verifier with an embedded random salt.
func (h *Hasher) Hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), h.cost)
}

// Verify reports whether password matches the verifier. bcrypt compares in constant time.
func (h *Hasher) Verify(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// Burn performs one comparison against the dummy verifier so that a missing
// account costs as much as a wrong password.
func (h *Hasher) Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
