package service

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/bcrypt"

	pkgcrypto "github.com/and161185/notevault/internal/crypto"
	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
	"github.com/and161185/notevault/internal/repository"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testHasher() *pkgcrypto.Hasher { return pkgcrypto.NewHasher(bcrypt.MinCost) }

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*model.User

	createCalls int
	err         error // returned by every method when set
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return errs.ErrDuplicateIdentity
	}
	c := *u
	c.CreatedAt, c.UpdatedAt = t0, t0
	f.byEmail[u.Email] = &c
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) SwapPasswordHash(_ context.Context, id uuid.UUID, oldHash, newHash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			if !bytes.Equal(u.PasswordHash, oldHash) {
				return errs.ErrInvalidCredential
			}
			u.PasswordHash = append([]byte(nil), newHash...)
			return nil
		}
	}
	return errs.ErrInvalidCredential
}

func (f *fakeUsers) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Name = name
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeUsers) remove(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, u := range f.byEmail {
		if u.ID == id {
			delete(f.byEmail, k)
		}
	}
}

type fakeRevocations struct {
	mu      sync.Mutex
	entries map[string]model.RevocationEntry
	err     error
}

var _ repository.RevocationRepository = (*fakeRevocations)(nil)

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{entries: map[string]model.RevocationEntry{}}
}

func (f *fakeRevocations) Insert(_ context.Context, e model.RevocationEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.entries[e.Key]; !ok {
		f.entries[e.Key] = e
	}
	return nil
}

func (f *fakeRevocations) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.entries[key]
	return ok, nil
}

func (f *fakeRevocations) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for k, e := range f.entries {
		if !e.ExpiresAt.After(now) {
			delete(f.entries, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRevocations) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failures    int
	successes   int
}

func (f *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return f.allowOK, 0, f.allowErr
}

func (f *fakeLimiter) Success(context.Context, string, []byte) error {
	f.successes++
	return nil
}

func (f *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	f.failures++
	return f.failBlocked, time.Minute, nil
}
