package crypto

import (
	"fmt"
	"strings"

	"github.com/and161185/notevault/internal/errs"
)

// PasswordSymbols is the punctuation set that satisfies the symbol rule.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

const (
	// MinPasswordLen is the minimum password length in characters.
	MinPasswordLen = 12
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// CheckPasswordPolicy returns an error wrapping errs.ErrWeakCredential that names
// the first rule the password breaks, or nil. Only ASCII letters count for the
// case rules.
func CheckPasswordPolicy(password string) error {
	if len([]rune(password)) < MinPasswordLen {
		return fmt.Errorf("%w: must be at least %d characters", errs.ErrWeakCredential, MinPasswordLen)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", errs.ErrWeakCredential, MaxPasswordBytes)
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	switch {
	case !upper:
		return fmt.Errorf("%w: must contain an uppercase letter", errs.ErrWeakCredential)
	case !lower:
		return fmt.Errorf("%w: must contain a lowercase letter", errs.ErrWeakCredential)
	case !digit:
		return fmt.Errorf("%w: must contain a digit", errs.ErrWeakCredential)
	case !symbol:
		return fmt.Errorf("%w: must contain one of %s", errs.ErrWeakCredential, PasswordSymbols)
	}
	return nil
}
