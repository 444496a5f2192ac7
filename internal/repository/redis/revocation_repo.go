// Package redis contains a Redis implementation of the revocation repository.
// Entries carry a TTL equal to the token's remaining lifetime, so Redis purges
// them on its own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
)

// DefaultPrefix namespaces revocation keys.
const DefaultPrefix = "notevault:revoked:"

// RevocationRepo implements repository.RevocationRepository on Redis.
type RevocationRepo struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRevocationRepo constructs a repository. An empty prefix selects DefaultPrefix.
func NewRevocationRepo(rdb redis.UniversalClient, prefix string) *RevocationRepo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RevocationRepo{rdb: rdb, prefix: prefix}
}

func (r *RevocationRepo) key(k string) string { return r.prefix + k }

// Insert stores the entry with SET NX. An entry whose token has already expired
// is not stored: expiry alone rejects it.
func (r *RevocationRepo) Insert(ctx context.Context, e model.RevocationEntry) error {
	ttl := e.ExpiresAt.Sub(e.RevokedAt)
	if ttl <= 0 {
		return nil
	}
	val := strconv.FormatInt(e.RevokedAt.Unix(), 10)
	if err := r.rdb.SetNX(ctx, r.key(e.Key), val, ttl).Err(); err != nil {
		return storageErr(err)
	}
	return nil
}

// Exists reports whether key is present.
func (r *RevocationRepo) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, storageErr(err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op: Redis drops entries when their TTL elapses.
func (r *RevocationRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping checks connectivity.
func (r *RevocationRepo) Ping(ctx context.Context) error {
	return storageErr(r.rdb.Ping(ctx).Err())
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
}
