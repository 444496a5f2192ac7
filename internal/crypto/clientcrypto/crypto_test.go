package clientcrypto

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"testing"

	"github.com/and161185/notevault/internal/model"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDeriveKey_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()
	pw := []byte("Secur3Pass!word")
	s1 := []byte("salt-1-16-bytes!")
	s2 := []byte("salt-2-16-bytes!")
	k1 := DeriveKey(pw, s1)
	if len(k1) != KeyLen {
		t.Fatalf("key len=%d", len(k1))
	}
	if subtle.ConstantTimeCompare(k1, DeriveKey(pw, s1)) != 1 {
		t.Fatalf("DeriveKey not deterministic")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKey(pw, s2)) != 0 {
		t.Fatalf("DeriveKey must change with salt")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKey([]byte("other"), s1)) != 0 {
		t.Fatalf("DeriveKey must change with password")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	t.Parallel()
	key := DeriveKey([]byte("pw"), []byte("salt"))
	pt := []byte("title\nbody of the note")

	blob, err := Seal(key, pt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(blob.IV) != IVLen || len(blob.AuthTag) != TagLen || len(blob.Ciphertext) != len(pt) {
		t.Fatalf("bad shape: iv=%d tag=%d ct=%d", len(blob.IV), len(blob.AuthTag), len(blob.Ciphertext))
	}
	if bytes.Contains(blob.Ciphertext, []byte("body")) {
		t.Fatalf("ciphertext leaks plaintext")
	}

	out, err := Open(key, blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(out, pt) {
		t.Fatalf("round trip mismatch: %q", out)
	}

	again, _ := Seal(key, pt)
	if bytes.Equal(again.IV, blob.IV) {
		t.Fatalf("IV reused")
	}
}

func TestOpen_Tampered(t *testing.T) {
	t.Parallel()
	key := DeriveKey([]byte("pw"), []byte("salt"))
	blob, err := Seal(key, []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	bad := model.NoteBlob{Ciphertext: append([]byte(nil), blob.Ciphertext...), IV: blob.IV, AuthTag: blob.AuthTag}
	bad.Ciphertext[0] ^= 0xFF
	if _, err := Open(key, bad); err == nil {
		t.Fatalf("want auth failure on tampered ciphertext")
	}

	otherKey := DeriveKey([]byte("pw2"), []byte("salt"))
	if _, err := Open(otherKey, blob); err == nil {
		t.Fatalf("want auth failure on wrong key")
	}

	short := model.NoteBlob{Ciphertext: blob.Ciphertext, IV: blob.IV[:4], AuthTag: blob.AuthTag}
	if _, err := Open(key, short); !errors.Is(err, ErrBlobShape) {
		t.Fatalf("want ErrBlobShape, got %v", err)
	}
}
