package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/limiter"
	"github.com/and161185/notevault/internal/model"
	"github.com/and161185/notevault/internal/token"
)

// AuthService implements login and logout on top of the credential store,
// the token service and the revocation ledger.
type AuthService struct {
	creds  *CredentialStore
	tokens *token.Service
	ledger *RevocationLedger
	lim    limiter.Limiter
	log    *zap.Logger
}

// NewAuthService constructs AuthService. A nil limiter disables throttling.
func NewAuthService(creds *CredentialStore, tokens *token.Service, ledger *RevocationLedger, lim limiter.Limiter, log *zap.Logger) *AuthService {
	if lim == nil {
		lim = limiter.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{creds: creds, tokens: tokens, ledger: ledger, lim: lim, log: log}
}

// Login authenticates with rate limiting by (email, peer) and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password, peer string) (model.Session, error) {
	ipHash := limiter.HashIP(peer)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Session{}, fmt.Errorf("login: %w", err)
	}
	if !allowed {
		return model.Session{}, errs.ErrRateLimited
	}

	u, err := s.creds.verifyUser(ctx, email, password)
	if errors.Is(err, errs.ErrInvalidCredential) {
		blocked, _, ferr := s.lim.Failure(ctx, email, ipHash)
		if ferr != nil {
			s.log.Warn("limiter failure not recorded", zap.Error(ferr))
		}
		if blocked {
			return model.Session{}, errs.ErrRateLimited
		}
		return model.Session{}, err
	}
	if err != nil {
		return model.Session{}, err
	}

	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}

	tok, claims, err := s.tokens.Issue(u.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("login: %w", err)
	}
	return model.Session{Token: tok, ExpiresAt: claims.ExpiresAt, User: publicUser(u)}, nil
}

// Logout revokes the presented token until its own expiry. Expired or
// malformed tokens are reported, not silently accepted.
func (s *AuthService) Logout(ctx context.Context, header string) error {
	tok, err := ParseBearer(header)
	if err != nil {
		return err
	}
	claims, err := s.tokens.Verify(tok)
	if err != nil {
		return err
	}
	return s.ledger.Revoke(ctx, tok, claims.ExpiresAt)
}
