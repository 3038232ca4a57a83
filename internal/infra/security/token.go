package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/victor-wayward/ironode/internal/core/domain"
)

const tokenSeedLength = 20

// NewAccountToken generates a single-use account token: the kind's prefix
// character followed by a hex SHA-256 digest over a fresh random seed and the
// account's lowercased email. The prefix is prepended explicitly and is never
// derived from digest content.
func NewAccountToken(kind domain.TokenKind, email string) (string, error) {
	seed := make([]byte, tokenSeedLength)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("generate token seed: %w", err)
	}

	h := sha256.New()
	h.Write(seed)
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))

	return kind.String() + hex.EncodeToString(h.Sum(nil)), nil
}
