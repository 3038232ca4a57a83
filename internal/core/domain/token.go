package domain

import "time"

// TokenKind classifies the three single-use account tokens. The kind is
// self-describing via the token's first character so one /token/:user/:token
// endpoint can dispatch without an extra lookup.
type TokenKind byte

const (
	TokenRegistration TokenKind = 'r'
	TokenReset        TokenKind = 'p'
	TokenEmailChange  TokenKind = 'e'
)

// TokenTTL is the validity window of every account token, measured from the
// issuance timestamp stored on the owning field.
const TokenTTL = 60 * time.Minute

// KindOfToken inspects a token's prefix character.
func KindOfToken(token string) (TokenKind, bool) {
	if token == "" {
		return 0, false
	}
	switch kind := TokenKind(token[0]); kind {
	case TokenRegistration, TokenReset, TokenEmailChange:
		return kind, true
	}
	return 0, false
}

// String returns the kind's prefix character.
func (k TokenKind) String() string {
	return string(rune(k))
}
