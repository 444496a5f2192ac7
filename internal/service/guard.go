package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
	"github.com/and161185/notevault/internal/repository"
)

const bearerPrefix = "Bearer "

// TokenVerifier verifies session tokens. Implemented by *token.Service.
type TokenVerifier interface {
	Verify(tok string) (model.Claims, error)
}

// SessionGuard is the single gate in front of protected operations. It turns a
// raw Authorization header into an identity or one of the session errors.
type SessionGuard struct {
	tokens TokenVerifier
	ledger *RevocationLedger
	users  repository.UserRepository
	log    *zap.Logger
}

// NewSessionGuard constructs a guard.
func NewSessionGuard(tokens TokenVerifier, ledger *RevocationLedger, users repository.UserRepository, log *zap.Logger) *SessionGuard {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionGuard{tokens: tokens, ledger: ledger, users: users, log: log}
}

// ParseBearer extracts the token from "Bearer <token>". The scheme is
// case-sensitive and the token must be non-empty without whitespace.
func ParseBearer(header string) (string, error) {
	tok, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || tok == "" || strings.ContainsAny(tok, " \t\r\n") {
		return "", errs.ErrMissingCredential
	}
	return tok, nil
}

// Authenticate runs header → signature/expiry → revocation → user lookup and
// stops at the first failing gate.
func (g *SessionGuard) Authenticate(ctx context.Context, header string) (model.Identity, error) {
	id, err := g.authenticate(ctx, header)
	if err != nil {
		g.log.Debug("session rejected", zap.String("reason", rejectReason(err)))
	}
	return id, err
}

func (g *SessionGuard) authenticate(ctx context.Context, header string) (model.Identity, error) {
	tok, err := ParseBearer(header)
	if err != nil {
		return model.Identity{}, err
	}
	claims, err := g.tokens.Verify(tok)
	if err != nil {
		return model.Identity{}, err
	}
	revoked, err := g.ledger.IsRevoked(ctx, tok)
	if err != nil {
		return model.Identity{}, err
	}
	if revoked {
		return model.Identity{}, errs.ErrRevoked
	}
	u, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	return model.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		Token:     tok,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func rejectReason(err error) string {
	for _, e := range []error{
		errs.ErrMissingCredential, errs.ErrMalformed, errs.ErrBadSignature,
		errs.ErrExpired, errs.ErrRevoked, errs.ErrNotFound, errs.ErrStorageUnavailable,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "other"
}
