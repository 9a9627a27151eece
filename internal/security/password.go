package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher abstracts the password verification scheme so deployments
// can pick between legacy compatibility and a real KDF.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
}

// LegacyHasher is the rolling-checksum scheme compatible with account
// records persisted by existing deployments. It offers no real security;
// it exists only so imported data keeps authenticating.
type LegacyHasher struct{}

func (LegacyHasher) Hash(password string) (string, error) {
	return HashPassword(password), nil
}

func (LegacyHasher) Verify(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}
	return HashPassword(password) == stored
}

// BcryptHasher is the scheme for new deployments. Switching an existing
// dataset to bcrypt invalidates every stored hash, so the scheme is chosen
// by configuration rather than upgraded silently.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(out), nil
}

func (h BcryptHasher) Verify(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// HasherForScheme maps a configured scheme name to an implementation.
// Unknown names fall back to the legacy scheme.
func HasherForScheme(scheme string) PasswordHasher {
	switch scheme {
	case "bcrypt":
		return BcryptHasher{}
	default:
		return LegacyHasher{}
	}
}
