// Package service declares the ports the usecases call out through: hashing,
// OAuth providers, state signing, mail, events, translation and metrics.
package service

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	// ValidateStrength returns ErrPasswordStrength, with the failed rule in its
	// details, or ErrPasswordForbiddenWords.
	ValidateStrength(password string) error

	Hash(password string) (string, error)

	// Check reports whether password matches hash. Malformed hashes never match.
	Check(password, hash string) bool
}
