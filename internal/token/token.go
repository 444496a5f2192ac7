// Package token issues and verifies signed, time-bounded session tokens (HS256 JWT).
//
// Verification is a pure function of the signing key and the clock: it never
// consults storage, so revocation is checked separately by the session guard.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/notevault/internal/clock"
	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
)

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// Service signs and verifies session tokens.
type Service struct {
	key   []byte
	ttl   time.Duration
	clock clock.Clock
	ids   uuid.Generator
}

// New constructs a token service. It panics on an empty key or a non-positive TTL:
// both are startup configuration errors, never user input.
func New(key []byte, ttl time.Duration, clk clock.Clock) *Service {
	if len(key) == 0 {
		panic("token: empty signing key")
	}
	if ttl <= 0 {
		panic("token: non-positive ttl")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{key: append([]byte(nil), key...), ttl: ttl, clock: clk, ids: uuid.DefaultGenerator}
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a signed token for userID with iat=now and exp=now+TTL.
func (s *Service) Issue(userID uuid.UUID) (string, model.Claims, error) {
	if userID == uuid.Nil {
		return "", model.Claims{}, errors.New("token: empty subject")
	}
	jti, err := s.ids.NewV4()
	if err != nil {
		return "", model.Claims{}, fmt.Errorf("token: jti: %w", err)
	}
	iat := s.clock.Now().Truncate(jwt.TimePrecision)
	exp := iat.Add(s.ttl)
	rc := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        jti.String(),
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, rc).SignedString(s.key)
	if err != nil {
		return "", model.Claims{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, model.Claims{UserID: userID, TokenID: rc.ID, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Verify checks structure, signature and expiry, in that order.
func (s *Service) Verify(tok string) (model.Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tok, &rc, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return model.Claims{}, classify(err)
	}
	if rc.IssuedAt == nil {
		return model.Claims{}, fmt.Errorf("%w: missing iat", errs.ErrMalformed)
	}
	sub, err := uuid.FromString(rc.Subject)
	if err != nil || sub == uuid.Nil {
		return model.Claims{}, fmt.Errorf("%w: bad subject", errs.ErrMalformed)
	}
	return model.Claims{
		UserID:    sub,
		TokenID:   rc.ID,
		IssuedAt:  rc.IssuedAt.Time,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return s.key, nil
}

// classify maps jwt parser errors onto the session error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", errs.ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", errs.ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return errs.ErrExpired
	default:
		return fmt.Errorf("%w: %v", errs.ErrMalformed, err)
	}
}
