package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost mirrors the adaptive-hash default used for new deployments.
const DefaultHashCost = 12

// HashPassword derives a bcrypt hash with the given cost factor. A cost
// outside bcrypt's range falls back to DefaultHashCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword compares a plaintext against a stored bcrypt hash. A
// mismatch is not an error; only malformed hashes surface one.
func VerifyPassword(password, storedHash string) (bool, error) {
	if password == "" || storedHash == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, fmt.Errorf("verify password: %w", err)
}
