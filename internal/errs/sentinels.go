// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Credential store failures.
var (
	// ErrDuplicateIdentity indicates an account with the same email already exists.
	ErrDuplicateIdentity = errors.New("duplicate identity")
	// ErrWeakCredential indicates a password that does not satisfy the strength policy.
	ErrWeakCredential = errors.New("weak credential")
	// ErrInvalidCredential is returned for every login/password-change mismatch.
	// It deliberately does not say whether the account exists.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// Session failures, one per gate of the session guard.
var (
	// ErrMissingCredential indicates an absent or malformed Authorization header.
	ErrMissingCredential = errors.New("missing credential")
	// ErrMalformed indicates a token that cannot be parsed.
	ErrMalformed = errors.New("malformed token")
	// ErrBadSignature indicates a token whose signature does not verify.
	ErrBadSignature = errors.New("bad token signature")
	// ErrExpired indicates a token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrRevoked indicates a token that was logged out before its expiry.
	ErrRevoked = errors.New("token revoked")
)

var (
	// ErrStorageUnavailable wraps any storage failure that is not a domain condition.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidArgument indicates request input that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsAuthFailure reports whether err is one of the session guard rejections.
func IsAuthFailure(err error) bool {
	for _, target := range []error{
		ErrMissingCredential, ErrMalformed, ErrBadSignature, ErrExpired, ErrRevoked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
