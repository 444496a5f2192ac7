package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/notevault/internal/clock"
	"github.com/and161185/notevault/internal/errs"
)

func TestTokenKey(t *testing.T) {
	t.Parallel()
	a, b := TokenKey("abc"), TokenKey("abd")
	if a == b || len(a) != 64 {
		t.Fatalf("bad keys: %s %s", a, b)
	}
	if TokenKey("abc") != a {
		t.Fatalf("not deterministic")
	}
}

func TestRevoke_IdempotentAndExact(t *testing.T) {
	t.Parallel()
	revs := newFakeRevocations()
	clk := clock.NewFake(t0)
	l := NewRevocationLedger(revs, clk, nil)
	ctx := context.Background()
	exp := t0.Add(time.Hour)

	if err := l.Revoke(ctx, "tok", exp); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	clk.Advance(time.Minute)
	if err := l.Revoke(ctx, "tok", exp.Add(time.Hour)); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if revs.len() != 1 {
		t.Fatalf("entries=%d, want 1", revs.len())
	}
	e := revs.entries[TokenKey("tok")]
	if !e.ExpiresAt.Equal(exp) || !e.RevokedAt.Equal(t0) {
		t.Fatalf("first revocation must win: %+v", e)
	}

	ok, err := l.IsRevoked(ctx, "tok")
	if err != nil || !ok {
		t.Fatalf("IsRevoked: %v %v", ok, err)
	}
	for _, other := range []string{"tok ", "Tok", "to"} {
		if ok, _ := l.IsRevoked(ctx, other); ok {
			t.Fatalf("%q matched by a different token", other)
		}
	}

	if err := l.Revoke(ctx, "", exp); !errors.Is(err, errs.ErrMalformed) {
		t.Fatalf("empty token: want ErrMalformed, got %v", err)
	}
}

func TestRevoke_Concurrent(t *testing.T) {
	t.Parallel()
	revs := newFakeRevocations()
	l := NewRevocationLedger(revs, clock.NewFake(t0), nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Revoke(context.Background(), "same", t0.Add(time.Hour)); err != nil {
				t.Errorf("Revoke: %v", err)
			}
		}()
	}
	wg.Wait()
	if revs.len() != 1 {
		t.Fatalf("entries=%d", revs.len())
	}
}

func TestPurge_ExpiryGated(t *testing.T) {
	t.Parallel()
	revs := newFakeRevocations()
	clk := clock.NewFake(t0)
	l := NewRevocationLedger(revs, clk, nil)
	ctx := context.Background()

	_ = l.Revoke(ctx, "short", t0.Add(time.Minute))
	_ = l.Revoke(ctx, "long", t0.Add(time.Hour))

	n, err := l.Purge(ctx)
	if err != nil || n != 0 {
		t.Fatalf("nothing expired yet: n=%d err=%v", n, err)
	}

	clk.Advance(time.Minute)
	n, err = l.Purge(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Purge: n=%d err=%v", n, err)
	}
	if ok, _ := l.IsRevoked(ctx, "long"); !ok {
		t.Fatalf("unexpired revocation purged")
	}
	if ok, _ := l.IsRevoked(ctx, "short"); ok {
		t.Fatalf("expired entry kept")
	}
}

func TestLedger_StorageErrors(t *testing.T) {
	t.Parallel()
	revs := newFakeRevocations()
	revs.err = errs.ErrStorageUnavailable
	l := NewRevocationLedger(revs, nil, nil)
	ctx := context.Background()

	if err := l.Revoke(ctx, "t", t0); !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := l.IsRevoked(ctx, "t"); !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Fatalf("IsRevoked: %v", err)
	}
	if _, err := l.Purge(ctx); !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Fatalf("Purge: %v", err)
	}
}

func TestRun_PurgesUntilCancelled(t *testing.T) {
	t.Parallel()
	revs := newFakeRevocations()
	clk := clock.NewFake(t0)
	l := NewRevocationLedger(revs, clk, zaptest.NewLogger(t))
	_ = l.Revoke(context.Background(), "a", t0.Add(time.Second))
	clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for revs.len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("purge loop did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
}
