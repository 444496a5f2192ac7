package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/and161185/notevault/internal/clock"
	"github.com/and161185/notevault/internal/errs"
)

// PG is a PostgreSQL-backed limiter with a failure window and lockout.
type PG struct {
	pool     Querier
	clock    clock.Clock
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter on the wall clock.
func NewPG(q Querier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return NewPGWithClock(q, clock.Real(), window, maxFails, blockFor)
}

// NewPGWithClock constructs a limiter with an explicit clock.
func NewPGWithClock(q Querier, clk clock.Clock, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	if clk == nil {
		clk = clock.Real()
	}
	return &PG{pool: q, clock: clk, window: window, maxFails: maxFails, blockFor: blockFor}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE email=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, email, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		now := l.clock.Now()
		if blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, fmt.Errorf("%w: limiter: %w", errs.ErrStorageUnavailable, err)
	}
}

// Success resets counters for (email, ip).
func (l *PG) Success(ctx context.Context, email string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,0,'epoch',now())
ON CONFLICT (email, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=now()`
	if _, err := l.pool.Exec(ctx, q, email, ipHash); err != nil {
		return fmt.Errorf("%w: limiter: %w", errs.ErrStorageUnavailable, err)
	}
	return nil
}

// Failure records a failed attempt; reaching maxFails inside the window sets a block.
func (l *PG) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (email, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN EXCLUDED.updated_at - auth_limiter.updated_at > $3::interval THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, email, ipHash, l.window).Scan(&fails); err != nil {
		return false, 0, fmt.Errorf("%w: limiter: %w", errs.ErrStorageUnavailable, err)
	}
	if l.maxFails <= 0 || fails < l.maxFails {
		return false, 0, nil
	}
	blockUntil := l.clock.Now().Add(l.blockFor)
	const upd = `UPDATE auth_limiter SET blocked_until=$3 WHERE email=$1 AND ip_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, email, ipHash, blockUntil); err != nil {
		return false, 0, fmt.Errorf("%w: limiter: %w", errs.ErrStorageUnavailable, err)
	}
	return true, l.blockFor, nil
}
