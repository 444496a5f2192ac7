package service

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/notevault/internal/clock"
	"github.com/and161185/notevault/internal/token"
)

type harness struct {
	clk    *clock.Fake
	users  *fakeUsers
	revs   *fakeRevocations
	lim    *fakeLimiter
	creds  *CredentialStore
	tokens *token.Service
	ledger *RevocationLedger
	guard  *SessionGuard
	auth   *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := &harness{
		clk:   clock.NewFake(t0),
		users: newFakeUsers(),
		revs:  newFakeRevocations(),
		lim:   &fakeLimiter{allowOK: true},
	}
	h.creds = NewCredentialStore(h.users, testHasher(), nil)
	h.tokens = token.New([]byte("test-secret"), token.DefaultTTL, h.clk)
	h.ledger = NewRevocationLedger(h.revs, h.clk, log)
	h.guard = NewSessionGuard(h.tokens, h.ledger, h.users, log)
	h.auth = NewAuthService(h.creds, h.tokens, h.ledger, h.lim, log)
	return h
}
