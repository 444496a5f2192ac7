package repository

import (
	"context"
	"time"

	"github.com/and161185/notevault/internal/model"
)

// RevocationRepository persists revoked-token entries keyed by token digest.
type RevocationRepository interface {
	// Insert adds the entry; inserting an existing key is a no-op.
	Insert(ctx context.Context, e model.RevocationEntry) error
	// Exists reports whether key has been revoked.
	Exists(ctx context.Context, key string) (bool, error)
	// DeleteExpired removes entries whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
