package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/notevault/internal/clock"
	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
	"github.com/and161185/notevault/internal/repository"
)

// RevocationLedger records logged-out tokens until their natural expiry.
// Tokens are opaque here: lookups use a digest of the exact token string.
type RevocationLedger struct {
	repo  repository.RevocationRepository
	clock clock.Clock
	log   *zap.Logger
}

// NewRevocationLedger constructs a ledger. nil clk/log select the real clock and a no-op logger.
func NewRevocationLedger(repo repository.RevocationRepository, clk clock.Clock, log *zap.Logger) *RevocationLedger {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RevocationLedger{repo: repo, clock: clk, log: log}
}

// TokenKey derives the ledger key for a token.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Revoke records token as revoked until expiresAt. Revoking twice is a no-op.
func (l *RevocationLedger) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return errs.ErrMalformed
	}
	e := model.RevocationEntry{
		Key:       TokenKey(token),
		ExpiresAt: expiresAt,
		RevokedAt: l.clock.Now(),
	}
	if err := l.repo.Insert(ctx, e); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether token has been revoked.
func (l *RevocationLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	ok, err := l.repo.Exists(ctx, TokenKey(token))
	if err != nil {
		return false, fmt.Errorf("is revoked: %w", err)
	}
	return ok, nil
}

// Purge removes entries whose copied expiry is at or before now. Entries of
// tokens that are still valid are never touched.
func (l *RevocationLedger) Purge(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteExpired(ctx, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return n, nil
}

// Run purges every interval until ctx is done.
func (l *RevocationLedger) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := l.Purge(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.log.Warn("ledger purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				l.log.Info("ledger purged", zap.Int64("entries", n))
			}
		}
	}
}
