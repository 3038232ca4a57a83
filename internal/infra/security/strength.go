package security

import (
	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordScore estimates password strength on zxcvbn's 0-4 scale, taking
// account identifiers into consideration so "username123" scores poorly.
// The score is advisory and surfaced on the live validation channel only;
// the submit path enforces just the minimum length.
func PasswordScore(password string, userInputs ...string) int {
	if password == "" {
		return 0
	}
	return zxcvbn.PasswordStrength(password, userInputs).Score
}
